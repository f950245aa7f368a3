package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/repository"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
)

// BalanceService computes guardian fee breakdowns. Pure read path; it never
// writes ledger state. The database remains the source of truth, the redis
// cache only shortens the default (current session/term) lookup.
type BalanceService struct {
	db             repository.DBTX
	walletRepo     repository.WalletRepository
	settlementRepo repository.SettlementRepository
	allocationRepo repository.AllocationRepository
	invoiceRepo    repository.InvoiceRepository
	studentRepo    repository.StudentRepository
	academicRepo   repository.AcademicRepository
	obligations    *ObligationService
	cache          *redis.Client
	cacheTTL       time.Duration
}

func NewBalanceService(
	db repository.DBTX,
	walletRepo repository.WalletRepository,
	settlementRepo repository.SettlementRepository,
	allocationRepo repository.AllocationRepository,
	invoiceRepo repository.InvoiceRepository,
	studentRepo repository.StudentRepository,
	academicRepo repository.AcademicRepository,
	obligations *ObligationService,
	cache *redis.Client,
	cacheTTL time.Duration,
) *BalanceService {
	return &BalanceService{
		db:             db,
		walletRepo:     walletRepo,
		settlementRepo: settlementRepo,
		allocationRepo: allocationRepo,
		invoiceRepo:    invoiceRepo,
		studentRepo:    studentRepo,
		academicRepo:   academicRepo,
		obligations:    obligations,
		cache:          cache,
		cacheTTL:       cacheTTL,
	}
}

// Breakdown aggregates owed, settled and allocated amounts for a guardian,
// with a per-dependent split. Session and term default to the school's
// current pair when nil.
func (s *BalanceService) Breakdown(ctx context.Context, guardianID uuid.UUID, sessionID, termID *uuid.UUID) (*domain.FeeBreakdown, error) {
	guardian, err := s.studentRepo.GetGuardian(ctx, s.db, guardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapGuardianNotFound(guardianID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	defaultScope := sessionID == nil && termID == nil
	if defaultScope {
		if cached := s.fromCache(ctx, guardianID); cached != nil {
			return cached, nil
		}
	}

	session, term, err := s.resolveScope(ctx, guardian.SchoolID, sessionID, termID)
	if err != nil {
		return nil, err
	}

	breakdown := &domain.FeeBreakdown{
		GuardianID:     guardianID,
		SessionID:      session.ID,
		TotalOwed:      decimal.Zero,
		TotalSettled:   decimal.Zero,
		TotalAllocated: decimal.Zero,
		WalletBalance:  decimal.Zero,
		Outstanding:    decimal.Zero,
		PerDependent:   []*domain.DependentBreakdown{},
	}

	var scopeTermID *uuid.UUID
	if term != nil {
		breakdown.TermID = &term.ID
		scopeTermID = &term.ID
	}

	wallet, err := s.walletRepo.GetByGuardianID(ctx, s.db, guardianID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	if wallet != nil {
		breakdown.WalletBalance = wallet.Balance

		settled, err := s.settlementRepo.SumByWallet(ctx, s.db, wallet.ID, &session.ID, scopeTermID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		breakdown.TotalSettled = settled
	}

	dependents, err := s.studentRepo.ListActiveDependents(ctx, s.db, guardianID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	totalInvoiced := decimal.Zero
	for _, dependent := range dependents {
		perDependent, err := s.dependentBreakdown(ctx, dependent, session.ID, scopeTermID)
		if err != nil {
			return nil, err
		}

		breakdown.TotalOwed = breakdown.TotalOwed.Add(perDependent.TotalOwed)
		breakdown.TotalAllocated = breakdown.TotalAllocated.Add(perDependent.WalletAllocated)
		totalInvoiced = totalInvoiced.Add(perDependent.InvoicedPaid)
		breakdown.PerDependent = append(breakdown.PerDependent, perDependent)
	}

	breakdown.Outstanding = breakdown.TotalOwed.Sub(breakdown.TotalAllocated).Sub(totalInvoiced)
	if breakdown.Outstanding.IsNegative() {
		// Over-allocation is a ledger bug; surface it, never clamp it.
		log.Printf("ERROR: negative outstanding %s for guardian %s, allocation exceeds obligations",
			breakdown.Outstanding, guardianID)
	}

	if defaultScope {
		s.toCache(ctx, guardianID, breakdown)
	}

	return breakdown, nil
}

func (s *BalanceService) dependentBreakdown(ctx context.Context, student *domain.Student, sessionID uuid.UUID, termID *uuid.UUID) (*domain.DependentBreakdown, error) {
	obligations, err := s.obligations.ObligationsFor(ctx, s.db, student.ID, sessionID, termID)
	if err != nil {
		return nil, err
	}

	perDependent := &domain.DependentBreakdown{
		StudentID:       student.ID,
		StudentNo:       student.StudentNo,
		StudentName:     student.FullName,
		TotalOwed:       decimal.Zero,
		WalletAllocated: decimal.Zero,
		InvoicedPaid:    decimal.Zero,
		Items:           make([]*domain.BreakdownItem, 0, len(obligations)),
	}

	for _, obligation := range obligations {
		perDependent.TotalOwed = perDependent.TotalOwed.Add(obligation.EffectiveAmount)
		perDependent.Items = append(perDependent.Items, &domain.BreakdownItem{
			ClassFeeItemID: obligation.ClassFeeItemID,
			Name:           obligation.FeeName,
			Amount:         obligation.EffectiveAmount,
			IsMandatory:    obligation.IsMandatory,
			IsLocked:       obligation.IsLocked,
		})
	}

	allocations, err := s.allocationRepo.ListByStudent(ctx, s.db, student.ID, &sessionID, termID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	for _, allocation := range allocations {
		perDependent.WalletAllocated = perDependent.WalletAllocated.Add(allocation.AllocatedAmount)
	}

	invoiced, err := s.invoiceRepo.SumPaidByStudent(ctx, s.db, student.ID, &sessionID, termID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	perDependent.InvoicedPaid = invoiced

	perDependent.Outstanding = perDependent.TotalOwed.
		Sub(perDependent.WalletAllocated).
		Sub(perDependent.InvoicedPaid)

	return perDependent, nil
}

func (s *BalanceService) resolveScope(ctx context.Context, schoolID uuid.UUID, sessionID, termID *uuid.UUID) (*domain.AcademicSession, *domain.Term, error) {
	var session *domain.AcademicSession
	var err error

	if sessionID != nil {
		session, err = s.academicRepo.GetSession(ctx, s.db, *sessionID)
	} else {
		session, err = s.academicRepo.GetCurrentSession(ctx, s.db, schoolID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, customError.WrapSessionNotFound(schoolID.String())
		}
		return nil, nil, customError.WrapDatabaseError(err)
	}

	var term *domain.Term
	if termID != nil {
		term, err = s.academicRepo.GetTerm(ctx, s.db, *termID)
		if err != nil {
			return nil, nil, customError.WrapDatabaseError(err)
		}
	} else {
		term, err = s.academicRepo.GetCurrentTerm(ctx, s.db, schoolID)
		if err != nil {
			return nil, nil, customError.WrapDatabaseError(err)
		}
	}

	return session, term, nil
}

func (s *BalanceService) fromCache(ctx context.Context, guardianID uuid.UUID) *domain.FeeBreakdown {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, breakdownCacheKey(guardianID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("breakdown cache read failed for guardian %s: %v", guardianID, err)
		}
		return nil
	}

	var breakdown domain.FeeBreakdown
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return nil
	}
	return &breakdown
}

func (s *BalanceService) toCache(ctx context.Context, guardianID uuid.UUID, breakdown *domain.FeeBreakdown) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, breakdownCacheKey(guardianID), raw, s.cacheTTL).Err(); err != nil {
		log.Printf("breakdown cache write failed for guardian %s: %v", guardianID, err)
	}
}
