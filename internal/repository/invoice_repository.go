package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// InvoiceRepository reads direct-invoice payments recorded outside the
// wallet path. The engine never writes invoices; they only feed the
// per-dependent breakdown.
type InvoiceRepository interface {
	// SumPaidByStudent totals direct invoice payments for a student,
	// optionally scoped to a session/term
	SumPaidByStudent(ctx context.Context, q DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error)
}

type invoiceRepository struct{}

func NewInvoiceRepository() InvoiceRepository {
	return &invoiceRepository{}
}

func (r *invoiceRepository) SumPaidByStudent(ctx context.Context, q DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM invoices
		WHERE student_id = $1
		  AND is_active = true
		  AND ($2::uuid IS NULL OR session_id = $2)
		  AND ($3::uuid IS NULL OR term_id = $3)
	`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &total, query, studentID, sessionID, termID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
