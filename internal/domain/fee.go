package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeItem is a school-level fee definition. Eligibility fields (gender,
// student status) are evaluated when assignments and opt-ins are created,
// never retroactively.
type FeeItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SchoolID    uuid.UUID       `json:"school_id" db:"school_id"`
	Name        string          `json:"name" db:"name"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Category    string          `json:"category" db:"category"`
	IsMandatory bool            `json:"is_mandatory" db:"is_mandatory"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ClassFeeItem assigns a fee item to a class for a session/term, optionally
// with a custom amount. A locked assignment freezes amount and inclusion.
type ClassFeeItem struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	ClassID      uuid.UUID        `json:"class_id" db:"class_id"`
	FeeItemID    uuid.UUID        `json:"fee_item_id" db:"fee_item_id"`
	SessionID    uuid.UUID        `json:"session_id" db:"session_id"`
	TermID       *uuid.UUID       `json:"term_id" db:"term_id"`
	CustomAmount *decimal.Decimal `json:"custom_amount" db:"custom_amount"`
	IsLocked     bool             `json:"is_locked" db:"is_locked"`
	IsActive     bool             `json:"is_active" db:"is_active"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	// Joined from fee_items on read.
	FeeName     string          `json:"fee_name" db:"fee_name"`
	BaseAmount  decimal.Decimal `json:"base_amount" db:"base_amount"`
	IsMandatory bool            `json:"is_mandatory" db:"is_mandatory"`
}

// EffectiveAmount returns the custom amount when set, else the fee item's
// base amount.
func (c *ClassFeeItem) EffectiveAmount() decimal.Decimal {
	if c.CustomAmount != nil {
		return *c.CustomAmount
	}
	return c.BaseAmount
}

// StudentOptionalFee is a student's opt-in to an optional class fee item.
// LockedAmount is a point-in-time freeze taken when the opt-in was locked.
type StudentOptionalFee struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	StudentID      uuid.UUID        `json:"student_id" db:"student_id"`
	ClassFeeItemID uuid.UUID        `json:"class_fee_item_id" db:"class_fee_item_id"`
	IsLocked       bool             `json:"is_locked" db:"is_locked"`
	LockedAmount   *decimal.Decimal `json:"locked_amount" db:"locked_amount"`
	IsActive       bool             `json:"is_active" db:"is_active"`
	OptedInAt      time.Time        `json:"opted_in_at" db:"opted_in_at"`
}

// Obligation is the resolved fee a student owes for a session/term. It is
// derived, not stored: mandatory class fees plus active opt-ins, each with
// its effective amount at resolution time.
type Obligation struct {
	StudentID       uuid.UUID       `json:"student_id"`
	ClassFeeItemID  uuid.UUID       `json:"class_fee_item_id"`
	FeeName         string          `json:"fee_name"`
	EffectiveAmount decimal.Decimal `json:"effective_amount"`
	IsMandatory     bool            `json:"is_mandatory"`
	IsLocked        bool            `json:"is_locked"`
	CreatedAt       time.Time       `json:"-"`
}
