package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/schoolhq/settlement-engine/internal/domain"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
	"github.com/schoolhq/settlement-engine/tests/mocks"
)

type ledgerFixture struct {
	walletRepo     *mocks.MockWalletRepository
	settlementRepo *mocks.MockSettlementRepository
	allocationRepo *mocks.MockAllocationRepository
	academicRepo   *mocks.MockAcademicRepository
	service        *LedgerService
}

func newLedgerFixture() *ledgerFixture {
	return newLedgerFixtureWithCache(nil)
}

func newLedgerFixtureWithCache(cache *redis.Client) *ledgerFixture {
	f := &ledgerFixture{
		walletRepo:     &mocks.MockWalletRepository{},
		settlementRepo: &mocks.MockSettlementRepository{},
		allocationRepo: &mocks.MockAllocationRepository{},
		academicRepo:   &mocks.MockAcademicRepository{},
	}
	studentRepo := &mocks.MockStudentRepository{}
	feeRepo := &mocks.MockFeeRepository{}
	obligations := NewObligationService(feeRepo, studentRepo)
	allocations := NewAllocationService(
		nil, mocks.FakeTransactor{},
		f.settlementRepo, f.allocationRepo, f.walletRepo, studentRepo, obligations, cache,
	)
	f.service = NewLedgerService(
		nil, mocks.FakeTransactor{},
		f.walletRepo, f.settlementRepo, f.allocationRepo, f.academicRepo,
		allocations, LogNotifier{}, cache,
	)
	return f
}

func testWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:           uuid.New(),
		GuardianID:   uuid.New(),
		SchoolID:     uuid.New(),
		CustomerCode: "CUS_abc123",
		Balance:      decimal.Zero,
		Currency:     "NGN",
		IsActive:     true,
	}
}

func TestRecordSettlement_CreatesAndCredits(t *testing.T) {
	f := newLedgerFixture()
	wallet := testWallet()
	amount := decimal.NewFromInt(6000)
	session := &domain.AcademicSession{ID: uuid.New(), SchoolID: wallet.SchoolID, IsCurrent: true}
	term := &domain.Term{ID: uuid.New(), SessionID: session.ID, IsCurrent: true}

	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-100").
		Return(nil, sql.ErrNoRows)
	f.academicRepo.On("GetCurrentSession", mock.Anything, mock.Anything, wallet.SchoolID).Return(session, nil)
	f.academicRepo.On("GetCurrentTerm", mock.Anything, mock.Anything, wallet.SchoolID).Return(term, nil)
	f.settlementRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(s *domain.Settlement) bool {
		return s.Reference == "PSK-REF-100" && s.Amount.Equal(amount) && *s.SessionID == session.ID
	})).Return(nil)
	f.walletRepo.On("CreditBalance", mock.Anything, mock.Anything, wallet.ID, amount).Return(nil)

	// Distribution runs after commit; an equal allocated sum makes it a
	// no-op so this test stays focused on the ledger write.
	f.settlementRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Settlement{Amount: amount, SessionID: &session.ID}, nil)
	f.allocationRepo.On("SumBySettlement", mock.Anything, mock.Anything, mock.Anything).
		Return(amount, nil)
	f.settlementRepo.On("MarkAllocated", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settlement, created, err := f.service.RecordSettlement(context.Background(), RecordSettlementInput{
		Wallet:         wallet,
		Reference:      "PSK-REF-100",
		Amount:         amount,
		Currency:       "NGN",
		Status:         domain.SettlementStatusSuccess,
		SettlementType: domain.SettlementTypeAuto,
	})

	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "PSK-REF-100", settlement.Reference)
	assert.Equal(t, &term.ID, settlement.TermID)
	f.walletRepo.AssertExpectations(t)
	f.settlementRepo.AssertExpectations(t)
}

func TestRecordSettlement_DuplicateReferenceIsIdempotent(t *testing.T) {
	f := newLedgerFixture()
	wallet := testWallet()
	existing := &domain.Settlement{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		Reference: "PSK-REF-100",
		Amount:    decimal.NewFromInt(6000),
	}

	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-100").
		Return(existing, nil)

	settlement, created, err := f.service.RecordSettlement(context.Background(), RecordSettlementInput{
		Wallet:         wallet,
		Reference:      "PSK-REF-100",
		Amount:         decimal.NewFromInt(6000),
		SettlementType: domain.SettlementTypeAuto,
	})

	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, settlement.ID)
	f.settlementRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.walletRepo.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordSettlement_LosesInsertRace(t *testing.T) {
	f := newLedgerFixture()
	wallet := testWallet()
	winner := &domain.Settlement{ID: uuid.New(), Reference: "PSK-REF-100"}
	session := &domain.AcademicSession{ID: uuid.New(), SchoolID: wallet.SchoolID}

	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-100").
		Return(nil, sql.ErrNoRows).Once()
	f.academicRepo.On("GetCurrentSession", mock.Anything, mock.Anything, wallet.SchoolID).Return(session, nil)
	f.academicRepo.On("GetCurrentTerm", mock.Anything, mock.Anything, wallet.SchoolID).Return(nil, nil)
	f.settlementRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(&pq.Error{Code: "23505"})
	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-100").
		Return(winner, nil).Once()

	settlement, created, err := f.service.RecordSettlement(context.Background(), RecordSettlementInput{
		Wallet:         wallet,
		Reference:      "PSK-REF-100",
		Amount:         decimal.NewFromInt(6000),
		SettlementType: domain.SettlementTypeAuto,
	})

	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, settlement.ID)
	f.walletRepo.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordSettlement_RejectsNonPositiveAmount(t *testing.T) {
	f := newLedgerFixture()

	_, _, err := f.service.RecordSettlement(context.Background(), RecordSettlementInput{
		Wallet:    testWallet(),
		Reference: "PSK-REF-100",
		Amount:    decimal.Zero,
	})

	var bizErr *customError.BusinessError
	assert.ErrorAs(t, err, &bizErr)
	assert.Equal(t, customError.ErrCodeInvalidAmount, bizErr.Code)
	f.settlementRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything, mock.Anything)
}

// commandTap intercepts redis commands in place of a live server, recording
// each command name into the shared slice.
type commandTap struct {
	events *[]string
}

func (h commandTap) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h commandTap) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		*h.events = append(*h.events, cmd.Name())
		return nil
	}
}

func (h commandTap) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRecordSettlement_InvalidatesBreakdownAfterDistribution(t *testing.T) {
	var events []string
	cache := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	cache.AddHook(commandTap{events: &events})

	f := newLedgerFixtureWithCache(cache)
	wallet := testWallet()
	amount := decimal.NewFromInt(6000)
	session := &domain.AcademicSession{ID: uuid.New(), SchoolID: wallet.SchoolID, IsCurrent: true}

	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-300").
		Return(nil, sql.ErrNoRows)
	f.academicRepo.On("GetCurrentSession", mock.Anything, mock.Anything, wallet.SchoolID).Return(session, nil)
	f.academicRepo.On("GetCurrentTerm", mock.Anything, mock.Anything, wallet.SchoolID).Return(nil, nil)
	f.settlementRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.walletRepo.On("CreditBalance", mock.Anything, mock.Anything, wallet.ID, amount).Return(nil)
	f.settlementRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Settlement{Amount: amount, SessionID: &session.ID}, nil)
	f.allocationRepo.On("SumBySettlement", mock.Anything, mock.Anything, mock.Anything).
		Return(amount, nil)
	f.settlementRepo.On("MarkAllocated", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { events = append(events, "distribute") }).
		Return(nil)

	_, created, err := f.service.RecordSettlement(context.Background(), RecordSettlementInput{
		Wallet:         wallet,
		Reference:      "PSK-REF-300",
		Amount:         amount,
		Currency:       "NGN",
		Status:         domain.SettlementStatusSuccess,
		SettlementType: domain.SettlementTypeAuto,
	})

	assert.NoError(t, err)
	assert.True(t, created)
	// Dropping the cached breakdown before the distribution pass would let a
	// racing read re-cache pre-allocation totals for the full TTL.
	assert.Equal(t, []string{"distribute", "del"}, events)
}

func TestResolveWallet_FallsBackToAccountNumber(t *testing.T) {
	f := newLedgerFixture()
	wallet := testWallet()

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_missing").
		Return(nil, sql.ErrNoRows)
	f.walletRepo.On("GetByAccountNumber", mock.Anything, mock.Anything, "0123456789").
		Return(wallet, nil)

	resolved, err := f.service.ResolveWallet(context.Background(), "CUS_missing", "0123456789")

	assert.NoError(t, err)
	assert.Equal(t, wallet.ID, resolved.ID)
}

func TestResolveWallet_NoMatch(t *testing.T) {
	f := newLedgerFixture()

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_missing").
		Return(nil, sql.ErrNoRows)
	f.walletRepo.On("GetByAccountNumber", mock.Anything, mock.Anything, "0123456789").
		Return(nil, sql.ErrNoRows)

	_, err := f.service.ResolveWallet(context.Background(), "CUS_missing", "0123456789")

	assert.ErrorIs(t, err, customError.ErrUnresolvableWallet)
}

func TestRecordManual_UsesRequestedSession(t *testing.T) {
	f := newLedgerFixture()
	wallet := testWallet()
	amount := decimal.NewFromInt(2500)
	session := &domain.AcademicSession{ID: uuid.New(), SchoolID: wallet.SchoolID}

	f.walletRepo.On("GetByGuardianID", mock.Anything, mock.Anything, wallet.GuardianID).Return(wallet, nil)
	f.academicRepo.On("GetSession", mock.Anything, mock.Anything, session.ID).Return(session, nil)
	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, sql.ErrNoRows)
	f.settlementRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(s *domain.Settlement) bool {
		return s.SettlementType == domain.SettlementTypeManual && *s.SessionID == session.ID
	})).Return(nil)
	f.walletRepo.On("CreditBalance", mock.Anything, mock.Anything, wallet.ID, amount).Return(nil)
	f.settlementRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Settlement{Amount: amount, SessionID: &session.ID}, nil)
	f.allocationRepo.On("SumBySettlement", mock.Anything, mock.Anything, mock.Anything).
		Return(amount, nil)
	f.settlementRepo.On("MarkAllocated", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settlement, err := f.service.RecordManual(context.Background(), &domain.ManualSettlementRequest{
		GuardianID: wallet.GuardianID,
		SessionID:  session.ID,
		Amount:     amount,
		Notes:      "bank teller deposit",
	})

	assert.NoError(t, err)
	assert.Equal(t, session.ID, *settlement.SessionID)
	assert.Contains(t, settlement.Reference, "MANUAL-")
	f.academicRepo.AssertNotCalled(t, "GetCurrentSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordManual_UnknownGuardian(t *testing.T) {
	f := newLedgerFixture()
	guardianID := uuid.New()

	f.walletRepo.On("GetByGuardianID", mock.Anything, mock.Anything, guardianID).
		Return(nil, sql.ErrNoRows)

	_, err := f.service.RecordManual(context.Background(), &domain.ManualSettlementRequest{
		GuardianID: guardianID,
		SessionID:  uuid.New(),
		Amount:     decimal.NewFromInt(1000),
	})

	var bizErr *customError.BusinessError
	assert.ErrorAs(t, err, &bizErr)
	assert.Equal(t, customError.ErrCodeGuardianNotFound, bizErr.Code)
}
