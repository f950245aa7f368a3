package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type feeRepository struct{}

func NewFeeRepository() FeeRepository {
	return &feeRepository{}
}

func (r *feeRepository) ListClassFeeItems(ctx context.Context, q DBTX, studentID, classID, sessionID uuid.UUID, termID *uuid.UUID) ([]*domain.ClassFeeItem, error) {
	// A lock is a point-in-time freeze, not a reference: locked assignments
	// stay included when the fee item is deactivated or removed from the
	// class, and a locked opt-in keeps its row reachable even when the
	// assignment itself was deactivated.
	query := `
		SELECT c.id, c.class_id, c.fee_item_id, c.session_id, c.term_id,
			c.custom_amount, c.is_locked, c.is_active, c.created_at,
			f.name AS fee_name, f.amount AS base_amount, f.is_mandatory
		FROM class_fee_items c
		JOIN fee_items f ON f.id = c.fee_item_id
		WHERE c.class_id = $2
		  AND c.session_id = $3
		  AND ($4::uuid IS NULL OR c.term_id = $4 OR c.term_id IS NULL)
		  AND (
			(c.is_active = true AND f.is_active = true)
			OR c.is_locked = true
			OR EXISTS (
				SELECT 1 FROM student_optional_fees o
				WHERE o.class_fee_item_id = c.id
				  AND o.student_id = $1
				  AND o.is_locked = true
			)
		  )
		ORDER BY f.is_mandatory DESC, c.created_at, c.id
	`

	var items []*domain.ClassFeeItem
	if err := sqlx.SelectContext(ctx, q, &items, query, studentID, classID, sessionID, termID); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *feeRepository) ListOptInsByStudent(ctx context.Context, q DBTX, studentID uuid.UUID) ([]*domain.StudentOptionalFee, error) {
	query := `
		SELECT id, student_id, class_fee_item_id, is_locked, locked_amount, is_active, opted_in_at
		FROM student_optional_fees
		WHERE student_id = $1
	`

	var optIns []*domain.StudentOptionalFee
	if err := sqlx.SelectContext(ctx, q, &optIns, query, studentID); err != nil {
		return nil, err
	}

	return optIns, nil
}
