package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SettlementTypeAuto   = "AUTO"
	SettlementTypeManual = "MANUAL"

	SettlementStatusSuccess = "success"

	// AllocationStatus tracks whether a distribution pass has completed for
	// the settlement. A completed pass may have written zero allocation rows.
	AllocationStatusPending   = "PENDING"
	AllocationStatusCompleted = "COMPLETED"
)

// Settlement is one immutable ledger record for a confirmed inbound payment.
// Reference is unique per real-world transaction and is the idempotency key.
type Settlement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	WalletID         uuid.UUID       `json:"wallet_id" db:"wallet_id"`
	SchoolID         uuid.UUID       `json:"school_id" db:"school_id"`
	Reference        string          `json:"reference" db:"reference"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Currency         string          `json:"currency" db:"currency"`
	Status           string          `json:"status" db:"status"`
	PaymentChannel   *string         `json:"payment_channel" db:"payment_channel"`
	PayerEmail       *string         `json:"payer_email" db:"payer_email"`
	SettlementType   string          `json:"settlement_type" db:"settlement_type"`
	AllocationStatus string          `json:"allocation_status" db:"allocation_status"`
	SessionID        *uuid.UUID      `json:"session_id" db:"session_id"`
	TermID           *uuid.UUID      `json:"term_id" db:"term_id"`
	RawPayload       *string         `json:"-" db:"raw_payload"`
	TransactionAt    time.Time       `json:"transaction_at" db:"transaction_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// UnclaimedPayment records a verified charge that could not be matched to any
// wallet. Kept durable so money never silently disappears.
type UnclaimedPayment struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Reference    string          `json:"reference" db:"reference"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Currency     string          `json:"currency" db:"currency"`
	PayerEmail   *string         `json:"payer_email" db:"payer_email"`
	CustomerCode *string         `json:"customer_code" db:"customer_code"`
	RawPayload   string          `json:"-" db:"raw_payload"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// DTOs for requests and responses

type ManualSettlementRequest struct {
	GuardianID uuid.UUID       `json:"guardian_id" validate:"required"`
	SessionID  uuid.UUID       `json:"session_id" validate:"required"`
	TermID     *uuid.UUID      `json:"term_id"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	Notes      string          `json:"notes"`
}

type SettlementResponse struct {
	Settlement  *Settlement          `json:"settlement"`
	Allocations []*PaymentAllocation `json:"allocations,omitempty"`
}
