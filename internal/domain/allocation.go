package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AllocationMethodSequential = "SEQUENTIAL"
	AllocationMethodManual     = "MANUAL"
)

// PaymentAllocation records how much of a settlement was applied to one
// obligation. Allocations are append-only; a misallocation is corrected by
// writing an offsetting row, never by editing history.
type PaymentAllocation struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	SettlementID           uuid.UUID       `json:"settlement_id" db:"settlement_id"`
	StudentID              uuid.UUID       `json:"student_id" db:"student_id"`
	ClassFeeItemID         uuid.UUID       `json:"class_fee_item_id" db:"class_fee_item_id"`
	SchoolID               uuid.UUID       `json:"school_id" db:"school_id"`
	AllocatedAmount        decimal.Decimal `json:"allocated_amount" db:"allocated_amount"`
	AllocationOrder        int             `json:"allocation_order" db:"allocation_order"`
	AllocationMethod       string          `json:"allocation_method" db:"allocation_method"`
	RemainingBalanceBefore decimal.Decimal `json:"remaining_balance_before" db:"remaining_balance_before"`
	RemainingBalanceAfter  decimal.Decimal `json:"remaining_balance_after" db:"remaining_balance_after"`
	Notes                  *string         `json:"notes" db:"notes"`
	AllocatedAt            time.Time       `json:"allocated_at" db:"allocated_at"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}
