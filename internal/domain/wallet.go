package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a guardian's pooled payment account. One wallet per guardian,
// balance mutated only by the settlement ledger.
type Wallet struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	GuardianID    uuid.UUID       `json:"guardian_id" db:"guardian_id"`
	SchoolID      uuid.UUID       `json:"school_id" db:"school_id"`
	CustomerCode  string          `json:"customer_code" db:"customer_code"`
	AccountNumber *string         `json:"account_number" db:"account_number"`
	AccountName   *string         `json:"account_name" db:"account_name"`
	BankName      *string         `json:"bank_name" db:"bank_name"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	Currency      string          `json:"currency" db:"currency"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
