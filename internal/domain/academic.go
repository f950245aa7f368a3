package domain

import (
	"github.com/google/uuid"
)

// AcademicSession and Term are owned by the academic-calendar subsystem; the
// engine only reads the currently effective pair for a school.
type AcademicSession struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SchoolID  uuid.UUID `json:"school_id" db:"school_id"`
	Year      string    `json:"year" db:"year"`
	IsCurrent bool      `json:"is_current" db:"is_current"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

type Term struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SchoolID  uuid.UUID `json:"school_id" db:"school_id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	Name      string    `json:"name" db:"name"`
	IsCurrent bool      `json:"is_current" db:"is_current"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}
