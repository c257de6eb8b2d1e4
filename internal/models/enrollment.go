package models

import (
	"fmt"
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Enrollment statuses. COMPLETED and WITHDRAWN are terminal.
const (
	EnrollmentStatusInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentStatusSuspended  EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn  EnrollmentStatus = "WITHDRAWN"
)

// Valid reports whether the status is known.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusInProgress, EnrollmentStatusSuspended, EnrollmentStatusCompleted, EnrollmentStatusWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether the enrollment is closed.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusWithdrawn
}

// CanTransitionTo reports whether next is reachable in one step.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	switch s {
	case EnrollmentStatusInProgress:
		return next == EnrollmentStatusSuspended || next.Terminal()
	case EnrollmentStatusSuspended:
		return next == EnrollmentStatusInProgress || next.Terminal()
	}
	return false
}

// ParseEnrollmentStatus converts raw input into a known status.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	status := EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown enrollment status %q", raw)
	}
	return status, nil
}

// Enrollment is one course of study created from an accepted candidacy.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	PersonID    string           `db:"person_id" json:"person_id"`
	CandidacyID string           `db:"candidacy_id" json:"candidacy_id"`
	ProgramTier ProgramTier      `db:"program_tier" json:"program_tier"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	EndDate     *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter narrows enrollment listings.
type EnrollmentFilter struct {
	PersonID    string
	ProgramTier ProgramTier
	Status      EnrollmentStatus
	Limit       int
	Offset      int
}
