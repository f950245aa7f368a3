package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type settlementRepository struct{}

func NewSettlementRepository() SettlementRepository {
	return &settlementRepository{}
}

const settlementColumns = `
	id, wallet_id, school_id, reference, amount, currency, status,
	payment_channel, payer_email, settlement_type, allocation_status,
	session_id, term_id, raw_payload, transaction_at, created_at
`

func (r *settlementRepository) Create(ctx context.Context, q DBTX, settlement *domain.Settlement) error {
	query := `
		INSERT INTO settlements (id, wallet_id, school_id, reference, amount, currency, status,
			payment_channel, payer_email, settlement_type, allocation_status,
			session_id, term_id, raw_payload, transaction_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := q.ExecContext(ctx, query,
		settlement.ID,
		settlement.WalletID,
		settlement.SchoolID,
		settlement.Reference,
		settlement.Amount,
		settlement.Currency,
		settlement.Status,
		settlement.PaymentChannel,
		settlement.PayerEmail,
		settlement.SettlementType,
		settlement.AllocationStatus,
		settlement.SessionID,
		settlement.TermID,
		settlement.RawPayload,
		settlement.TransactionAt,
		settlement.CreatedAt,
	)

	return err
}

func (r *settlementRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`

	var settlement domain.Settlement
	if err := sqlx.GetContext(ctx, q, &settlement, query, id); err != nil {
		return nil, err
	}

	return &settlement, nil
}

func (r *settlementRepository) GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1 FOR UPDATE`

	var settlement domain.Settlement
	if err := sqlx.GetContext(ctx, q, &settlement, query, id); err != nil {
		return nil, err
	}

	return &settlement, nil
}

func (r *settlementRepository) GetByReference(ctx context.Context, q DBTX, reference string) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE reference = $1`

	var settlement domain.Settlement
	if err := sqlx.GetContext(ctx, q, &settlement, query, reference); err != nil {
		return nil, err
	}

	return &settlement, nil
}

func (r *settlementRepository) SumByWallet(ctx context.Context, q DBTX, walletID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM settlements
		WHERE wallet_id = $1
		  AND ($2::uuid IS NULL OR session_id = $2)
		  AND ($3::uuid IS NULL OR term_id = $3)
	`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &total, query, walletID, sessionID, termID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *settlementRepository) ListUnallocated(ctx context.Context, q DBTX, limit int) ([]*domain.Settlement, error) {
	// The status flag, not the presence of allocation rows, marks a finished
	// pass. A settlement can legitimately finish with zero rows, and those
	// must not be picked up again.
	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		WHERE allocation_status = $1
		ORDER BY created_at
		LIMIT $2
	`

	var settlements []*domain.Settlement
	if err := sqlx.SelectContext(ctx, q, &settlements, query, domain.AllocationStatusPending, limit); err != nil {
		return nil, err
	}

	return settlements, nil
}

func (r *settlementRepository) MarkAllocated(ctx context.Context, q DBTX, settlementID uuid.UUID) error {
	query := `UPDATE settlements SET allocation_status = $1 WHERE id = $2`

	_, err := q.ExecContext(ctx, query, domain.AllocationStatusCompleted, settlementID)
	return err
}

func (r *settlementRepository) CreateUnclaimed(ctx context.Context, q DBTX, payment *domain.UnclaimedPayment) error {
	query := `
		INSERT INTO unclaimed_payments (id, reference, amount, currency, payer_email, customer_code, raw_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reference) DO NOTHING
	`

	_, err := q.ExecContext(ctx, query,
		payment.ID,
		payment.Reference,
		payment.Amount,
		payment.Currency,
		payment.PayerEmail,
		payment.CustomerCode,
		payment.RawPayload,
		payment.CreatedAt,
	)

	return err
}

func (r *settlementRepository) ListUnclaimed(ctx context.Context, q DBTX) ([]*domain.UnclaimedPayment, error) {
	query := `
		SELECT id, reference, amount, currency, payer_email, customer_code, raw_payload, created_at
		FROM unclaimed_payments
		ORDER BY created_at DESC
	`

	var payments []*domain.UnclaimedPayment
	if err := sqlx.SelectContext(ctx, q, &payments, query); err != nil {
		return nil, err
	}

	return payments, nil
}
