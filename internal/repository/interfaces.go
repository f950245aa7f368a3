package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx. Repositories take it per
// call so the service layer owns transaction boundaries; all settlement and
// allocation writes happen inside a single transaction.
type DBTX interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// WalletRepository defines the interface for wallet data operations
type WalletRepository interface {
	// GetByID retrieves a wallet by its id
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Wallet, error)

	// GetByGuardianID retrieves the wallet owned by a guardian
	GetByGuardianID(ctx context.Context, q DBTX, guardianID uuid.UUID) (*domain.Wallet, error)

	// GetByCustomerCode resolves a wallet by the gateway customer code
	GetByCustomerCode(ctx context.Context, q DBTX, customerCode string) (*domain.Wallet, error)

	// GetByAccountNumber resolves a wallet by its dedicated account number
	GetByAccountNumber(ctx context.Context, q DBTX, accountNumber string) (*domain.Wallet, error)

	// CreditBalance atomically increments the wallet balance
	CreditBalance(ctx context.Context, q DBTX, walletID uuid.UUID, amount decimal.Decimal) error
}

// SettlementRepository defines the interface for settlement data operations
type SettlementRepository interface {
	// Create inserts a settlement row; the unique constraint on reference
	// makes a duplicate insert fail rather than race
	Create(ctx context.Context, q DBTX, settlement *domain.Settlement) error

	// GetByID retrieves a settlement by id
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Settlement, error)

	// GetByIDForUpdate retrieves a settlement with a row lock, serializing
	// concurrent allocation attempts
	GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Settlement, error)

	// GetByReference retrieves a settlement by its gateway reference
	GetByReference(ctx context.Context, q DBTX, reference string) (*domain.Settlement, error)

	// SumByWallet totals settled amounts for a wallet, optionally scoped to
	// a session/term
	SumByWallet(ctx context.Context, q DBTX, walletID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error)

	// ListUnallocated returns settlements whose distribution pass never
	// completed (crashed between credit and distribution)
	ListUnallocated(ctx context.Context, q DBTX, limit int) ([]*domain.Settlement, error)

	// MarkAllocated records that a distribution pass completed for the
	// settlement, including passes that wrote no allocation rows
	MarkAllocated(ctx context.Context, q DBTX, settlementID uuid.UUID) error

	// CreateUnclaimed records a verified payment that resolved to no wallet
	CreateUnclaimed(ctx context.Context, q DBTX, payment *domain.UnclaimedPayment) error

	// ListUnclaimed returns unclaimed payments for manual reconciliation
	ListUnclaimed(ctx context.Context, q DBTX) ([]*domain.UnclaimedPayment, error)
}

// AllocationRepository defines the interface for payment allocation records
type AllocationRepository interface {
	// CreateBatch inserts allocation rows for one distribution pass
	CreateBatch(ctx context.Context, q DBTX, allocations []*domain.PaymentAllocation) error

	// ListBySettlement returns allocations for a settlement in walk order
	ListBySettlement(ctx context.Context, q DBTX, settlementID uuid.UUID) ([]*domain.PaymentAllocation, error)

	// ListByStudent returns a student's allocation history, optionally
	// scoped to a session/term
	ListByStudent(ctx context.Context, q DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) ([]*domain.PaymentAllocation, error)

	// SumBySettlement totals allocated amounts for a settlement
	SumBySettlement(ctx context.Context, q DBTX, settlementID uuid.UUID) (decimal.Decimal, error)

	// SumByObligations returns the cumulative allocated amount per class fee
	// item for one student across all settlements
	SumByObligations(ctx context.Context, q DBTX, studentID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// FeeRepository defines read access to the fee schedule
type FeeRepository interface {
	// ListClassFeeItems returns fee assignments for a class in a session,
	// joined with their fee item definition. Inactive rows still surface
	// when the assignment is locked or the student holds a locked opt-in.
	ListClassFeeItems(ctx context.Context, q DBTX, studentID, classID, sessionID uuid.UUID, termID *uuid.UUID) ([]*domain.ClassFeeItem, error)

	// ListOptInsByStudent returns a student's optional-fee opt-in rows
	ListOptInsByStudent(ctx context.Context, q DBTX, studentID uuid.UUID) ([]*domain.StudentOptionalFee, error)
}

// StudentRepository defines read access to guardians, dependents and
// enrollment
type StudentRepository interface {
	// GetGuardian retrieves a guardian by id
	GetGuardian(ctx context.Context, q DBTX, guardianID uuid.UUID) (*domain.Guardian, error)

	// ListActiveDependents returns a guardian's active, actively-linked
	// students ordered by creation time then id (the distribution order)
	ListActiveDependents(ctx context.Context, q DBTX, guardianID uuid.UUID) ([]*domain.Student, error)

	// GetActiveClassID returns the class the student is currently enrolled
	// in, or uuid.Nil when there is no active enrollment
	GetActiveClassID(ctx context.Context, q DBTX, studentID uuid.UUID) (uuid.UUID, error)
}

// AcademicRepository reads the academic calendar owned by a collaborator
// subsystem
type AcademicRepository interface {
	// GetCurrentSession returns the school's current active session
	GetCurrentSession(ctx context.Context, q DBTX, schoolID uuid.UUID) (*domain.AcademicSession, error)

	// GetCurrentTerm returns the school's current active term, or nil when
	// none is marked current
	GetCurrentTerm(ctx context.Context, q DBTX, schoolID uuid.UUID) (*domain.Term, error)

	// GetSession retrieves a session by id
	GetSession(ctx context.Context, q DBTX, id uuid.UUID) (*domain.AcademicSession, error)

	// GetTerm retrieves a term by id
	GetTerm(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Term, error)
}
