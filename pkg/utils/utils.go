package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FromMinorUnits converts a gateway amount in the minor currency unit
// (kobo, cents) to the main unit used in the ledger.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}

// ToMinorUnits converts a main-unit amount back to the minor unit,
// truncating sub-minor precision.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// ManualReference generates a reference for a manually logged settlement.
// Format matches gateway references closely enough for uniqueness but is
// visibly distinct in audit views.
func ManualReference() string {
	return "MANUAL-" + strings.ToUpper(uuid.New().String()[:8])
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
