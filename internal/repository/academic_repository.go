package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolhq/settlement-engine/internal/domain"
)

type academicRepository struct{}

func NewAcademicRepository() AcademicRepository {
	return &academicRepository{}
}

func (r *academicRepository) GetCurrentSession(ctx context.Context, q DBTX, schoolID uuid.UUID) (*domain.AcademicSession, error) {
	query := `
		SELECT id, school_id, year, is_current, is_active
		FROM academic_sessions
		WHERE school_id = $1 AND is_current = true AND is_active = true
	`

	var session domain.AcademicSession
	if err := sqlx.GetContext(ctx, q, &session, query, schoolID); err != nil {
		return nil, err
	}

	return &session, nil
}

// GetCurrentTerm returns nil without error when no term is marked current;
// a termless session is a valid calendar state.
func (r *academicRepository) GetCurrentTerm(ctx context.Context, q DBTX, schoolID uuid.UUID) (*domain.Term, error) {
	query := `
		SELECT id, school_id, session_id, name, is_current, is_active
		FROM terms
		WHERE school_id = $1 AND is_current = true AND is_active = true
	`

	var term domain.Term
	if err := sqlx.GetContext(ctx, q, &term, query, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &term, nil
}

func (r *academicRepository) GetSession(ctx context.Context, q DBTX, id uuid.UUID) (*domain.AcademicSession, error) {
	query := `SELECT id, school_id, year, is_current, is_active FROM academic_sessions WHERE id = $1`

	var session domain.AcademicSession
	if err := sqlx.GetContext(ctx, q, &session, query, id); err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *academicRepository) GetTerm(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Term, error) {
	query := `SELECT id, school_id, session_id, name, is_current, is_active FROM terms WHERE id = $1`

	var term domain.Term
	if err := sqlx.GetContext(ctx, q, &term, query, id); err != nil {
		return nil, err
	}

	return &term, nil
}
