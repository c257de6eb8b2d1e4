package dto

import "time"

// CreateEnrollmentRequest enrolls the person behind an accepted candidacy.
type CreateEnrollmentRequest struct {
	CandidacyID string     `json:"candidacyId" validate:"required"`
	StartDate   *time.Time `json:"startDate,omitempty"`
}

// UpdateEnrollmentStatusRequest changes an enrollment status.
type UpdateEnrollmentStatusRequest struct {
	Status  string     `json:"status" validate:"required"`
	EndDate *time.Time `json:"endDate,omitempty"`
}
