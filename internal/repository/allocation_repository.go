package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type allocationRepository struct{}

func NewAllocationRepository() AllocationRepository {
	return &allocationRepository{}
}

const allocationColumns = `
	id, settlement_id, student_id, class_fee_item_id, school_id,
	allocated_amount, allocation_order, allocation_method,
	remaining_balance_before, remaining_balance_after, notes,
	allocated_at, created_at
`

func (r *allocationRepository) CreateBatch(ctx context.Context, q DBTX, allocations []*domain.PaymentAllocation) error {
	query := `
		INSERT INTO payment_allocations (id, settlement_id, student_id, class_fee_item_id, school_id,
			allocated_amount, allocation_order, allocation_method,
			remaining_balance_before, remaining_balance_after, notes,
			allocated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, allocation := range allocations {
		_, err := q.ExecContext(ctx, query,
			allocation.ID,
			allocation.SettlementID,
			allocation.StudentID,
			allocation.ClassFeeItemID,
			allocation.SchoolID,
			allocation.AllocatedAmount,
			allocation.AllocationOrder,
			allocation.AllocationMethod,
			allocation.RemainingBalanceBefore,
			allocation.RemainingBalanceAfter,
			allocation.Notes,
			allocation.AllocatedAt,
			allocation.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *allocationRepository) ListBySettlement(ctx context.Context, q DBTX, settlementID uuid.UUID) ([]*domain.PaymentAllocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM payment_allocations
		WHERE settlement_id = $1
		ORDER BY allocation_order
	`

	var allocations []*domain.PaymentAllocation
	if err := sqlx.SelectContext(ctx, q, &allocations, query, settlementID); err != nil {
		return nil, err
	}

	return allocations, nil
}

func (r *allocationRepository) ListByStudent(ctx context.Context, q DBTX, studentID uuid.UUID, sessionID *uuid.UUID, termID *uuid.UUID) ([]*domain.PaymentAllocation, error) {
	query := `
		SELECT a.id, a.settlement_id, a.student_id, a.class_fee_item_id, a.school_id,
			a.allocated_amount, a.allocation_order, a.allocation_method,
			a.remaining_balance_before, a.remaining_balance_after, a.notes,
			a.allocated_at, a.created_at
		FROM payment_allocations a
		JOIN settlements s ON s.id = a.settlement_id
		WHERE a.student_id = $1
		  AND ($2::uuid IS NULL OR s.session_id = $2)
		  AND ($3::uuid IS NULL OR s.term_id = $3)
		ORDER BY a.created_at, a.allocation_order
	`

	var allocations []*domain.PaymentAllocation
	if err := sqlx.SelectContext(ctx, q, &allocations, query, studentID, sessionID, termID); err != nil {
		return nil, err
	}

	return allocations, nil
}

func (r *allocationRepository) SumBySettlement(ctx context.Context, q DBTX, settlementID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(allocated_amount), 0)
		FROM payment_allocations
		WHERE settlement_id = $1
	`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &total, query, settlementID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *allocationRepository) SumByObligations(ctx context.Context, q DBTX, studentID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	query := `
		SELECT class_fee_item_id, COALESCE(SUM(allocated_amount), 0) AS total
		FROM payment_allocations
		WHERE student_id = $1
		GROUP BY class_fee_item_id
	`

	var rows []struct {
		ClassFeeItemID uuid.UUID       `db:"class_fee_item_id"`
		Total          decimal.Decimal `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, studentID); err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.ClassFeeItemID] = row.Total
	}

	return totals, nil
}
