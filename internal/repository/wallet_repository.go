package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type walletRepository struct{}

func NewWalletRepository() WalletRepository {
	return &walletRepository{}
}

const walletColumns = `
	id, guardian_id, school_id, customer_code, account_number, account_name,
	bank_name, balance, currency, is_active, created_at, updated_at
`

func (r *walletRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	var wallet domain.Wallet
	if err := sqlx.GetContext(ctx, q, &wallet, query, id); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func (r *walletRepository) GetByGuardianID(ctx context.Context, q DBTX, guardianID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE guardian_id = $1`

	var wallet domain.Wallet
	if err := sqlx.GetContext(ctx, q, &wallet, query, guardianID); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func (r *walletRepository) GetByCustomerCode(ctx context.Context, q DBTX, customerCode string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE customer_code = $1 AND is_active = true`

	var wallet domain.Wallet
	if err := sqlx.GetContext(ctx, q, &wallet, query, customerCode); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func (r *walletRepository) GetByAccountNumber(ctx context.Context, q DBTX, accountNumber string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_number = $1 AND is_active = true`

	var wallet domain.Wallet
	if err := sqlx.GetContext(ctx, q, &wallet, query, accountNumber); err != nil {
		return nil, err
	}

	return &wallet, nil
}

// CreditBalance is a single UPDATE so two concurrent settlements for the same
// wallet serialize on the row instead of losing an update.
func (r *walletRepository) CreditBalance(ctx context.Context, q DBTX, walletID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1
	`

	_, err := q.ExecContext(ctx, query, walletID, amount)
	return err
}
