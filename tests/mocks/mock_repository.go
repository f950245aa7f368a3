package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/repository"
)

// FakeTransactor runs the callback without a database. Repositories are
// mocked per call, so the nil DBTX is never dereferenced.
type FakeTransactor struct{}

func (FakeTransactor) WithinTx(_ context.Context, fn func(q repository.DBTX) error) error {
	return fn(nil)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Wallet, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByGuardianID(ctx context.Context, q repository.DBTX, guardianID uuid.UUID) (*domain.Wallet, error) {
	args := m.Called(ctx, q, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByCustomerCode(ctx context.Context, q repository.DBTX, customerCode string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, customerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByAccountNumber(ctx context.Context, q repository.DBTX, accountNumber string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) CreditBalance(ctx context.Context, q repository.DBTX, walletID uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, q repository.DBTX, settlement *domain.Settlement) error {
	args := m.Called(ctx, q, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Settlement, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) GetByIDForUpdate(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Settlement, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) GetByReference(ctx context.Context, q repository.DBTX, reference string) (*domain.Settlement, error) {
	args := m.Called(ctx, q, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) SumByWallet(ctx context.Context, q repository.DBTX, walletID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, q, walletID, sessionID, termID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSettlementRepository) ListUnallocated(ctx context.Context, q repository.DBTX, limit int) ([]*domain.Settlement, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) MarkAllocated(ctx context.Context, q repository.DBTX, settlementID uuid.UUID) error {
	args := m.Called(ctx, q, settlementID)
	return args.Error(0)
}

func (m *MockSettlementRepository) CreateUnclaimed(ctx context.Context, q repository.DBTX, payment *domain.UnclaimedPayment) error {
	args := m.Called(ctx, q, payment)
	return args.Error(0)
}

func (m *MockSettlementRepository) ListUnclaimed(ctx context.Context, q repository.DBTX) ([]*domain.UnclaimedPayment, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UnclaimedPayment), args.Error(1)
}

type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) CreateBatch(ctx context.Context, q repository.DBTX, allocations []*domain.PaymentAllocation) error {
	args := m.Called(ctx, q, allocations)
	return args.Error(0)
}

func (m *MockAllocationRepository) ListBySettlement(ctx context.Context, q repository.DBTX, settlementID uuid.UUID) ([]*domain.PaymentAllocation, error) {
	args := m.Called(ctx, q, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentAllocation), args.Error(1)
}

func (m *MockAllocationRepository) ListByStudent(ctx context.Context, q repository.DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) ([]*domain.PaymentAllocation, error) {
	args := m.Called(ctx, q, studentID, sessionID, termID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentAllocation), args.Error(1)
}

func (m *MockAllocationRepository) SumBySettlement(ctx context.Context, q repository.DBTX, settlementID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, q, settlementID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAllocationRepository) SumByObligations(ctx context.Context, q repository.DBTX, studentID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx, q, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

type MockFeeRepository struct {
	mock.Mock
}

func (m *MockFeeRepository) ListClassFeeItems(ctx context.Context, q repository.DBTX, studentID, classID, sessionID uuid.UUID, termID *uuid.UUID) ([]*domain.ClassFeeItem, error) {
	args := m.Called(ctx, q, studentID, classID, sessionID, termID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClassFeeItem), args.Error(1)
}

func (m *MockFeeRepository) ListOptInsByStudent(ctx context.Context, q repository.DBTX, studentID uuid.UUID) ([]*domain.StudentOptionalFee, error) {
	args := m.Called(ctx, q, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StudentOptionalFee), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) SumPaidByStudent(ctx context.Context, q repository.DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, q, studentID, sessionID, termID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) GetGuardian(ctx context.Context, q repository.DBTX, guardianID uuid.UUID) (*domain.Guardian, error) {
	args := m.Called(ctx, q, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Guardian), args.Error(1)
}

func (m *MockStudentRepository) ListActiveDependents(ctx context.Context, q repository.DBTX, guardianID uuid.UUID) ([]*domain.Student, error) {
	args := m.Called(ctx, q, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Student), args.Error(1)
}

func (m *MockStudentRepository) GetActiveClassID(ctx context.Context, q repository.DBTX, studentID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, q, studentID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockAcademicRepository struct {
	mock.Mock
}

func (m *MockAcademicRepository) GetCurrentSession(ctx context.Context, q repository.DBTX, schoolID uuid.UUID) (*domain.AcademicSession, error) {
	args := m.Called(ctx, q, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcademicSession), args.Error(1)
}

func (m *MockAcademicRepository) GetCurrentTerm(ctx context.Context, q repository.DBTX, schoolID uuid.UUID) (*domain.Term, error) {
	args := m.Called(ctx, q, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Term), args.Error(1)
}

func (m *MockAcademicRepository) GetSession(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.AcademicSession, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcademicSession), args.Error(1)
}

func (m *MockAcademicRepository) GetTerm(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Term, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Term), args.Error(1)
}
