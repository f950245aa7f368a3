package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/repository"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
)

// ObligationService resolves the fee obligations a student owes for a
// session/term: every mandatory fee item assigned to the student's current
// class, plus optional items the student has an active opt-in for.
type ObligationService struct {
	feeRepo     repository.FeeRepository
	studentRepo repository.StudentRepository
}

func NewObligationService(
	feeRepo repository.FeeRepository,
	studentRepo repository.StudentRepository,
) *ObligationService {
	return &ObligationService{
		feeRepo:     feeRepo,
		studentRepo: studentRepo,
	}
}

// ObligationsFor computes the obligation set for one student. Takes a DBTX so
// callers can resolve inside their own transaction (the allocation engine
// must see the same snapshot it writes against).
func (s *ObligationService) ObligationsFor(ctx context.Context, q repository.DBTX, studentID, sessionID uuid.UUID, termID *uuid.UUID) ([]*domain.Obligation, error) {
	classID, err := s.studentRepo.GetActiveClassID(ctx, q, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if classID == uuid.Nil {
		// No active enrollment, nothing owed.
		return nil, nil
	}

	feeItems, err := s.feeRepo.ListClassFeeItems(ctx, q, studentID, classID, sessionID, termID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	optIns, err := s.feeRepo.ListOptInsByStudent(ctx, q, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	optInByItem := make(map[uuid.UUID]*domain.StudentOptionalFee, len(optIns))
	for _, optIn := range optIns {
		optInByItem[optIn.ClassFeeItemID] = optIn
	}

	obligations := make([]*domain.Obligation, 0, len(feeItems))
	for _, item := range feeItems {
		optIn := optInByItem[item.ID]

		if !item.IsMandatory {
			// Optional fees apply only with an opt-in. A locked opt-in keeps
			// the obligation even if it was later deactivated.
			if optIn == nil || (!optIn.IsActive && !optIn.IsLocked) {
				continue
			}
		}

		amount := item.EffectiveAmount()
		locked := item.IsLocked
		if optIn != nil && optIn.IsLocked {
			locked = true
			if optIn.LockedAmount != nil {
				// Frozen at lock time; later schedule edits don't apply.
				amount = *optIn.LockedAmount
			}
		}

		obligations = append(obligations, &domain.Obligation{
			StudentID:       studentID,
			ClassFeeItemID:  item.ID,
			FeeName:         item.FeeName,
			EffectiveAmount: amount,
			IsMandatory:     item.IsMandatory,
			IsLocked:        locked,
			CreatedAt:       item.CreatedAt,
		})
	}

	return obligations, nil
}
