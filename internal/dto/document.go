package dto

import "time"

// SubmitDocumentRequest attaches a received file to a candidacy.
type SubmitDocumentRequest struct {
	Kind      string     `json:"kind" validate:"required"`
	FileRef   string     `json:"fileRef" validate:"required,max=500"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ReviewDocumentRequest records a review decision.
type ReviewDocumentRequest struct {
	Status        string     `json:"status" validate:"required"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Justification *string    `json:"justification,omitempty" validate:"omitempty,max=1000"`
	Note          *string    `json:"note,omitempty" validate:"omitempty,max=1000"`
	ReviewedBy    *string    `json:"reviewedBy,omitempty" validate:"omitempty,max=120"`
}
