package domain

import (
	"time"

	"github.com/google/uuid"
)

// Student is the minimal student view the engine needs. CreatedAt doubles as
// the stable ordering key for sequential distribution.
type Student struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SchoolID  uuid.UUID `json:"school_id" db:"school_id"`
	StudentNo string    `json:"student_no" db:"student_no"`
	FullName  string    `json:"full_name" db:"full_name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Guardian owns a wallet and is linked to students through
// guardian_students rows.
type Guardian struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SchoolID  uuid.UUID `json:"school_id" db:"school_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GuardianStudent links a guardian to a dependent. Only active links
// contribute obligations to the guardian's total.
type GuardianStudent struct {
	ID               uuid.UUID `json:"id" db:"id"`
	GuardianID       uuid.UUID `json:"guardian_id" db:"guardian_id"`
	StudentID        uuid.UUID `json:"student_id" db:"student_id"`
	RelationshipType string    `json:"relationship_type" db:"relationship_type"`
	IsActive         bool      `json:"is_active" db:"is_active"`
}
