package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/repository"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
)

// AllocationService distributes a settlement across the outstanding
// obligations of the guardian's dependents in a fixed priority order:
// dependents by enrollment order, then mandatory before optional fees, then
// obligation creation order. The walk is deterministic so a replay against
// the same state produces identical allocations.
type AllocationService struct {
	db             repository.DBTX
	txm            repository.Transactor
	settlementRepo repository.SettlementRepository
	allocationRepo repository.AllocationRepository
	walletRepo     repository.WalletRepository
	studentRepo    repository.StudentRepository
	obligations    *ObligationService
	cache          *redis.Client
}

func NewAllocationService(
	db repository.DBTX,
	txm repository.Transactor,
	settlementRepo repository.SettlementRepository,
	allocationRepo repository.AllocationRepository,
	walletRepo repository.WalletRepository,
	studentRepo repository.StudentRepository,
	obligations *ObligationService,
	cache *redis.Client,
) *AllocationService {
	return &AllocationService{
		db:             db,
		txm:            txm,
		settlementRepo: settlementRepo,
		allocationRepo: allocationRepo,
		walletRepo:     walletRepo,
		studentRepo:    studentRepo,
		obligations:    obligations,
		cache:          cache,
	}
}

// Distribute runs one allocation pass for a settlement. The settlement row
// is locked for the duration of the transaction, and a settlement that
// already has allocations is left untouched, so concurrent or repeated
// attempts cannot double-spend. Every pass that runs to completion marks the
// settlement allocated, even when it wrote no rows, so the replay scheduler
// never picks it up again.
func (s *AllocationService) Distribute(ctx context.Context, settlementID uuid.UUID, method string) ([]*domain.PaymentAllocation, error) {
	var allocations []*domain.PaymentAllocation
	var guardianID uuid.UUID

	err := s.txm.WithinTx(ctx, func(q repository.DBTX) error {
		settlement, err := s.settlementRepo.GetByIDForUpdate(ctx, q, settlementID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		alreadyAllocated, err := s.allocationRepo.SumBySettlement(ctx, q, settlementID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if alreadyAllocated.GreaterThan(settlement.Amount) {
			return customError.WrapInvariantViolation(fmt.Sprintf(
				"settlement %s has %s allocated against amount %s",
				settlement.ID, alreadyAllocated, settlement.Amount,
			))
		}

		if alreadyAllocated.GreaterThan(decimal.Zero) {
			// A previous pass ran. Partial top-ups are reserved for the
			// manual path; the automatic walk never reshuffles history.
			return s.markAllocated(ctx, q, settlement)
		}

		if settlement.SessionID == nil {
			log.Printf("settlement %s recorded without an academic session, skipping distribution", settlement.ID)
			return s.markAllocated(ctx, q, settlement)
		}

		wallet, err := s.walletRepo.GetByID(ctx, q, settlement.WalletID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		guardianID = wallet.GuardianID

		dependents, err := s.studentRepo.ListActiveDependents(ctx, q, wallet.GuardianID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		remaining := settlement.Amount
		allocationOrder := 1
		now := time.Now()

		for _, dependent := range dependents {
			if !remaining.GreaterThan(decimal.Zero) {
				break
			}

			obligations, err := s.obligations.ObligationsFor(ctx, q, dependent.ID, *settlement.SessionID, settlement.TermID)
			if err != nil {
				return err
			}
			if len(obligations) == 0 {
				continue
			}

			allocatedByItem, err := s.allocationRepo.SumByObligations(ctx, q, dependent.ID)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}

			for _, obligation := range obligations {
				if !remaining.GreaterThan(decimal.Zero) {
					break
				}

				outstanding := obligation.EffectiveAmount.Sub(allocatedByItem[obligation.ClassFeeItemID])
				if outstanding.IsNegative() {
					return customError.WrapInvariantViolation(fmt.Sprintf(
						"obligation %s for student %s is over-allocated by %s",
						obligation.ClassFeeItemID, dependent.ID, outstanding.Neg(),
					))
				}
				if outstanding.IsZero() {
					continue
				}

				amount := decimal.Min(remaining, outstanding)

				allocations = append(allocations, &domain.PaymentAllocation{
					ID:                     uuid.New(),
					SettlementID:           settlement.ID,
					StudentID:              dependent.ID,
					ClassFeeItemID:         obligation.ClassFeeItemID,
					SchoolID:               settlement.SchoolID,
					AllocatedAmount:        amount,
					AllocationOrder:        allocationOrder,
					AllocationMethod:       method,
					RemainingBalanceBefore: outstanding,
					RemainingBalanceAfter:  outstanding.Sub(amount),
					AllocatedAt:            settlement.TransactionAt,
					CreatedAt:              now,
				})
				allocationOrder++
				remaining = remaining.Sub(amount)
			}
		}

		if len(allocations) == 0 {
			// Nothing outstanding; the settlement stays as wallet credit.
			return s.markAllocated(ctx, q, settlement)
		}

		if err := s.allocationRepo.CreateBatch(ctx, q, allocations); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.markAllocated(ctx, q, settlement); err != nil {
			return err
		}

		log.Printf("settlement %s distributed across %d obligations, %s unallocated",
			settlement.ID, len(allocations), remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(allocations) > 0 {
		// A cached breakdown from before this pass no longer reflects the
		// per-obligation totals.
		invalidateBreakdown(ctx, s.cache, guardianID)
	}

	return allocations, nil
}

func (s *AllocationService) markAllocated(ctx context.Context, q repository.DBTX, settlement *domain.Settlement) error {
	if settlement.AllocationStatus == domain.AllocationStatusCompleted {
		return nil
	}
	if err := s.settlementRepo.MarkAllocated(ctx, q, settlement.ID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// ReplayUnallocated re-runs distribution for settlements whose pass never
// completed, covering crashes between wallet credit and distribution. Manual
// settlements recover here too, tagged with their own method. Each replay
// goes through the same locked, check-first path, so it is safe to run on a
// schedule.
func (s *AllocationService) ReplayUnallocated(ctx context.Context, limit int) (int, error) {
	settlements, err := s.settlementRepo.ListUnallocated(ctx, s.db, limit)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	replayed := 0
	for _, settlement := range settlements {
		method := domain.AllocationMethodSequential
		if settlement.SettlementType == domain.SettlementTypeManual {
			method = domain.AllocationMethodManual
		}
		if _, err := s.Distribute(ctx, settlement.ID, method); err != nil {
			log.Printf("replay failed for settlement %s: %v", settlement.ID, err)
			continue
		}
		replayed++
	}

	return replayed, nil
}
