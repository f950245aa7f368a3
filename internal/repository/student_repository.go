package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type studentRepository struct{}

func NewStudentRepository() StudentRepository {
	return &studentRepository{}
}

func (r *studentRepository) GetGuardian(ctx context.Context, q DBTX, guardianID uuid.UUID) (*domain.Guardian, error) {
	query := `SELECT id, school_id, full_name, email, created_at FROM guardians WHERE id = $1`

	var guardian domain.Guardian
	if err := sqlx.GetContext(ctx, q, &guardian, query, guardianID); err != nil {
		return nil, err
	}

	return &guardian, nil
}

// ListActiveDependents orders by created_at then id. The order is the
// distribution priority, so it must be stable across runs.
func (r *studentRepository) ListActiveDependents(ctx context.Context, q DBTX, guardianID uuid.UUID) ([]*domain.Student, error) {
	query := `
		SELECT DISTINCT s.id, s.school_id, s.student_no, s.full_name, s.is_active, s.created_at
		FROM students s
		JOIN guardian_students gs ON gs.student_id = s.id
		WHERE gs.guardian_id = $1
		  AND gs.is_active = true
		  AND s.is_active = true
		ORDER BY s.created_at, s.id
	`

	var students []*domain.Student
	if err := sqlx.SelectContext(ctx, q, &students, query, guardianID); err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) GetActiveClassID(ctx context.Context, q DBTX, studentID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT class_id
		FROM student_classes
		WHERE student_id = $1 AND is_active = true
		LIMIT 1
	`

	var classID uuid.UUID
	if err := sqlx.GetContext(ctx, q, &classID, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}

	return classID, nil
}
