package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeBreakdown is the guardian-level financial summary. Outstanding is
// totalOwed minus totalAllocated; a negative value indicates an allocation
// bug and is surfaced, never clamped.
type FeeBreakdown struct {
	GuardianID     uuid.UUID             `json:"guardian_id"`
	SessionID      uuid.UUID             `json:"session_id"`
	TermID         *uuid.UUID            `json:"term_id,omitempty"`
	TotalOwed      decimal.Decimal       `json:"total_owed"`
	TotalSettled   decimal.Decimal       `json:"total_settled"`
	TotalAllocated decimal.Decimal       `json:"total_allocated"`
	WalletBalance  decimal.Decimal       `json:"wallet_balance"`
	Outstanding    decimal.Decimal       `json:"outstanding"`
	PerDependent   []*DependentBreakdown `json:"per_dependent"`
}

// DependentBreakdown repeats the summary shape scoped to one student.
type DependentBreakdown struct {
	StudentID       uuid.UUID        `json:"student_id"`
	StudentNo       string           `json:"student_no"`
	StudentName     string           `json:"student_name"`
	TotalOwed       decimal.Decimal  `json:"total_owed"`
	WalletAllocated decimal.Decimal  `json:"wallet_allocated"`
	InvoicedPaid    decimal.Decimal  `json:"invoiced_paid"`
	Outstanding     decimal.Decimal  `json:"outstanding"`
	Items           []*BreakdownItem `json:"items"`
}

// BreakdownItem is one fee line in a dependent's breakdown.
type BreakdownItem struct {
	ClassFeeItemID uuid.UUID       `json:"class_fee_item_id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	IsMandatory    bool            `json:"is_mandatory"`
	IsLocked       bool            `json:"is_locked"`
}
