package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/repository"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
	"github.com/schoolhq/settlement-engine/pkg/utils"
)

// Notifier delivers best-effort settlement notifications. Failures are
// logged and never roll back the financial transaction.
type Notifier interface {
	NotifySettlement(ctx context.Context, settlement *domain.Settlement, walletBalance decimal.Decimal) error
}

// LogNotifier is the default Notifier; outbound email delivery is owned by a
// collaborator service.
type LogNotifier struct{}

func (LogNotifier) NotifySettlement(_ context.Context, settlement *domain.Settlement, walletBalance decimal.Decimal) error {
	log.Printf("settlement %s recorded, reference=%s amount=%s balance=%s",
		settlement.ID, settlement.Reference, settlement.Amount, walletBalance)
	return nil
}

// LedgerService owns all settlement and wallet-balance mutation. Nothing
// else writes these tables.
type LedgerService struct {
	db             repository.DBTX
	txm            repository.Transactor
	walletRepo     repository.WalletRepository
	settlementRepo repository.SettlementRepository
	allocationRepo repository.AllocationRepository
	academicRepo   repository.AcademicRepository
	allocations    *AllocationService
	notifier       Notifier
	cache          *redis.Client
}

func NewLedgerService(
	db repository.DBTX,
	txm repository.Transactor,
	walletRepo repository.WalletRepository,
	settlementRepo repository.SettlementRepository,
	allocationRepo repository.AllocationRepository,
	academicRepo repository.AcademicRepository,
	allocations *AllocationService,
	notifier Notifier,
	cache *redis.Client,
) *LedgerService {
	return &LedgerService{
		db:             db,
		txm:            txm,
		walletRepo:     walletRepo,
		settlementRepo: settlementRepo,
		allocationRepo: allocationRepo,
		academicRepo:   academicRepo,
		allocations:    allocations,
		notifier:       notifier,
		cache:          cache,
	}
}

// RecordSettlementInput carries one verified payment into the ledger.
type RecordSettlementInput struct {
	Wallet         *domain.Wallet
	Reference      string
	Amount         decimal.Decimal
	Currency       string
	Status         string
	PaymentChannel *string
	PayerEmail     *string
	RawPayload     *string
	SettlementType string

	// Explicit scope for manual entries; nil means the school's current
	// session/term at processing time.
	SessionID *uuid.UUID
	TermID    *uuid.UUID
}

// RecordSettlement is idempotent on reference: a duplicate delivery returns
// the existing settlement with created=false and mutates nothing. A first
// delivery inserts the settlement and credits the wallet in one transaction,
// then triggers distribution.
func (s *LedgerService) RecordSettlement(ctx context.Context, input RecordSettlementInput) (*domain.Settlement, bool, error) {
	if !input.Amount.GreaterThan(decimal.Zero) {
		return nil, false, customError.WrapInvalidAmount(input.Amount.String())
	}

	if existing, err := s.settlementRepo.GetByReference(ctx, s.db, input.Reference); err == nil {
		log.Printf("settlement already processed for reference %s", input.Reference)
		return existing, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, customError.WrapDatabaseError(err)
	}

	sessionID, termID, err := s.resolveSettlementScope(ctx, input)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	settlement := &domain.Settlement{
		ID:               uuid.New(),
		WalletID:         input.Wallet.ID,
		SchoolID:         input.Wallet.SchoolID,
		Reference:        input.Reference,
		Amount:           input.Amount,
		Currency:         input.Currency,
		Status:           input.Status,
		PaymentChannel:   input.PaymentChannel,
		PayerEmail:       input.PayerEmail,
		SettlementType:   input.SettlementType,
		AllocationStatus: domain.AllocationStatusPending,
		RawPayload:       input.RawPayload,
		SessionID:        sessionID,
		TermID:           termID,
		TransactionAt:    now,
		CreatedAt:        now,
	}

	err = s.txm.WithinTx(ctx, func(q repository.DBTX) error {
		if err := s.settlementRepo.Create(ctx, q, settlement); err != nil {
			return err
		}
		return s.walletRepo.CreditBalance(ctx, q, input.Wallet.ID, input.Amount)
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race to a concurrent delivery; the winner's
			// row is the settlement.
			existing, fetchErr := s.settlementRepo.GetByReference(ctx, s.db, input.Reference)
			if fetchErr != nil {
				return nil, false, customError.WrapDatabaseError(fetchErr)
			}
			return existing, false, nil
		}
		return nil, false, customError.WrapDatabaseError(err)
	}

	method := domain.AllocationMethodSequential
	if input.SettlementType == domain.SettlementTypeManual {
		method = domain.AllocationMethodManual
	}
	if _, err := s.allocations.Distribute(ctx, settlement.ID, method); err != nil {
		// The settlement and credit are committed; the replay scheduler
		// picks this up.
		log.Printf("distribution failed for settlement %s: %v", settlement.ID, err)
	}

	// Invalidate only after the distribution attempt. Dropping the cached
	// breakdown earlier lets a racing read re-cache pre-allocation totals
	// for the full TTL.
	invalidateBreakdown(ctx, s.cache, input.Wallet.GuardianID)

	if err := s.notifier.NotifySettlement(ctx, settlement, input.Wallet.Balance.Add(input.Amount)); err != nil {
		log.Printf("settlement notification failed for %s: %v", settlement.Reference, err)
	}

	return settlement, true, nil
}

// resolveSettlementScope returns the session/term pair a settlement is
// recorded against: the explicit scope when given, else the school's current
// pair. A missing current session leaves both nil and the settlement stays as
// wallet credit.
func (s *LedgerService) resolveSettlementScope(ctx context.Context, input RecordSettlementInput) (*uuid.UUID, *uuid.UUID, error) {
	if input.SessionID != nil {
		return input.SessionID, input.TermID, nil
	}

	session, err := s.academicRepo.GetCurrentSession(ctx, s.db, input.Wallet.SchoolID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, customError.WrapDatabaseError(err)
	}
	term, err := s.academicRepo.GetCurrentTerm(ctx, s.db, input.Wallet.SchoolID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	var sessionID, termID *uuid.UUID
	if session != nil {
		sessionID = &session.ID
	}
	if term != nil {
		termID = &term.ID
	}
	return sessionID, termID, nil
}

// RecordManual logs a settlement taken outside the gateway (cash, bank
// teller) and pushes it through the same ledger and distribution path.
func (s *LedgerService) RecordManual(ctx context.Context, req *domain.ManualSettlementRequest) (*domain.Settlement, error) {
	wallet, err := s.walletRepo.GetByGuardianID(ctx, s.db, req.GuardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapGuardianNotFound(req.GuardianID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	session, err := s.academicRepo.GetSession(ctx, s.db, req.SessionID)
	if err != nil {
		return nil, customError.WrapSessionNotFound(wallet.SchoolID.String())
	}

	notes := req.Notes
	settlement, _, err := s.RecordSettlement(ctx, RecordSettlementInput{
		Wallet:         wallet,
		Reference:      utils.ManualReference(),
		Amount:         req.Amount,
		Currency:       wallet.Currency,
		Status:         domain.SettlementStatusSuccess,
		RawPayload:     &notes,
		SettlementType: domain.SettlementTypeManual,
		SessionID:      &session.ID,
		TermID:         req.TermID,
	})
	return settlement, err
}

// ResolveWallet finds the wallet a payment belongs to: gateway customer code
// first, then the receiving account number.
func (s *LedgerService) ResolveWallet(ctx context.Context, customerCode, accountNumber string) (*domain.Wallet, error) {
	if customerCode != "" {
		wallet, err := s.walletRepo.GetByCustomerCode(ctx, s.db, customerCode)
		if err == nil {
			return wallet, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	if accountNumber != "" {
		wallet, err := s.walletRepo.GetByAccountNumber(ctx, s.db, accountNumber)
		if err == nil {
			return wallet, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	return nil, customError.ErrUnresolvableWallet
}

// LogUnclaimed durably records a verified payment that matched no wallet so
// it can be reconciled by hand. The gateway still gets a 200; retrying would
// not make the wallet appear.
func (s *LedgerService) LogUnclaimed(ctx context.Context, event *domain.ChargeEvent, rawPayload string) error {
	payment := &domain.UnclaimedPayment{
		ID:         uuid.New(),
		Reference:  event.Data.Reference,
		Amount:     utils.FromMinorUnits(event.Data.Amount),
		Currency:   event.Data.Currency,
		RawPayload: rawPayload,
		CreatedAt:  time.Now(),
	}
	if event.Data.Customer.Email != "" {
		email := event.Data.Customer.Email
		payment.PayerEmail = &email
	}
	if event.Data.Customer.CustomerCode != "" {
		code := event.Data.Customer.CustomerCode
		payment.CustomerCode = &code
	}

	if err := s.settlementRepo.CreateUnclaimed(ctx, s.db, payment); err != nil {
		return customError.WrapDatabaseError(err)
	}

	log.Printf("unclaimed payment logged, reference=%s amount=%s customer=%s",
		payment.Reference, payment.Amount, event.Data.Customer.Email)
	return nil
}

// GetSettlement returns a settlement with its allocations for drill-down
// views.
func (s *LedgerService) GetSettlement(ctx context.Context, id uuid.UUID) (*domain.SettlementResponse, error) {
	settlement, err := s.settlementRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapSettlementNotFound(id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	allocations, err := s.allocationRepo.ListBySettlement(ctx, s.db, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.SettlementResponse{Settlement: settlement, Allocations: allocations}, nil
}

// ListStudentAllocations returns a student's allocation history for
// support/audit screens.
func (s *LedgerService) ListStudentAllocations(ctx context.Context, studentID uuid.UUID, sessionID, termID *uuid.UUID) ([]*domain.PaymentAllocation, error) {
	allocations, err := s.allocationRepo.ListByStudent(ctx, s.db, studentID, sessionID, termID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return allocations, nil
}

// ListUnclaimed returns payments awaiting manual reconciliation.
func (s *LedgerService) ListUnclaimed(ctx context.Context) ([]*domain.UnclaimedPayment, error) {
	payments, err := s.settlementRepo.ListUnclaimed(ctx, s.db)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

func invalidateBreakdown(ctx context.Context, cache *redis.Client, guardianID uuid.UUID) {
	if cache == nil || guardianID == uuid.Nil {
		return
	}
	if err := cache.Del(ctx, breakdownCacheKey(guardianID)).Err(); err != nil {
		log.Printf("breakdown cache invalidation failed for guardian %s: %v", guardianID, err)
	}
}

func breakdownCacheKey(guardianID uuid.UUID) string {
	return fmt.Sprintf("breakdown:%s:current", guardianID)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
