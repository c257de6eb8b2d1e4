package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentKind identifies an artifact in the closed document catalog.
type DocumentKind string

// Document kinds known to the catalog.
const (
	DocumentKindIDFront                 DocumentKind = "ID_FRONT"
	DocumentKindIDBack                  DocumentKind = "ID_BACK"
	DocumentKindPhoto                   DocumentKind = "PHOTO"
	DocumentKindProofOfAddress          DocumentKind = "PROOF_OF_ADDRESS"
	DocumentKindCV                      DocumentKind = "CV"
	DocumentKindPriorDiploma            DocumentKind = "PRIOR_DIPLOMA"
	DocumentKindCivilInsurance          DocumentKind = "CIVIL_INSURANCE"
	DocumentKindSignedQuote             DocumentKind = "SIGNED_QUOTE"
	DocumentKindSignedTrainingAgreement DocumentKind = "SIGNED_TRAINING_AGREEMENT"
	DocumentKindFinancingAgreement      DocumentKind = "FINANCING_AGREEMENT"
	DocumentKindMedicalCertificate      DocumentKind = "MEDICAL_CERTIFICATE"
	DocumentKindApprenticeshipContract  DocumentKind = "APPRENTICESHIP_CONTRACT"
)

var documentKinds = map[DocumentKind]struct{}{
	DocumentKindIDFront:                 {},
	DocumentKindIDBack:                  {},
	DocumentKindPhoto:                   {},
	DocumentKindProofOfAddress:          {},
	DocumentKindCV:                      {},
	DocumentKindPriorDiploma:            {},
	DocumentKindCivilInsurance:          {},
	DocumentKindSignedQuote:             {},
	DocumentKindSignedTrainingAgreement: {},
	DocumentKindFinancingAgreement:      {},
	DocumentKindMedicalCertificate:      {},
	DocumentKindApprenticeshipContract:  {},
}

// Valid reports whether the kind belongs to the catalog.
func (k DocumentKind) Valid() bool {
	_, ok := documentKinds[k]
	return ok
}

// ParseDocumentKind converts raw input into a catalog kind.
func ParseDocumentKind(raw string) (DocumentKind, error) {
	kind := DocumentKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown document kind %q", raw)
	}
	return kind, nil
}

// DocumentStatus tracks review progress of a submitted artifact.
type DocumentStatus string

// Document statuses.
const (
	DocumentStatusAwaited       DocumentStatus = "AWAITED"
	DocumentStatusReceived      DocumentStatus = "RECEIVED"
	DocumentStatusPendingReview DocumentStatus = "PENDING_REVIEW"
	DocumentStatusValid         DocumentStatus = "VALID"
	DocumentStatusRejected      DocumentStatus = "REJECTED"
	DocumentStatusExpired       DocumentStatus = "EXPIRED"
	DocumentStatusExempted      DocumentStatus = "EXEMPTED"
)

// Valid reports whether the status is known.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusAwaited, DocumentStatusReceived, DocumentStatusPendingReview,
		DocumentStatusValid, DocumentStatusRejected, DocumentStatusExpired, DocumentStatusExempted:
		return true
	}
	return false
}

// ParseDocumentStatus converts raw input into a known status.
func ParseDocumentStatus(raw string) (DocumentStatus, error) {
	status := DocumentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown document status %q", raw)
	}
	return status, nil
}

// Reviewable reports whether a reviewer may set the status directly.
func (s DocumentStatus) Reviewable() bool {
	switch s {
	case DocumentStatusPendingReview, DocumentStatusValid, DocumentStatusRejected,
		DocumentStatusExpired, DocumentStatusExempted:
		return true
	}
	return false
}

// Document is one artifact attached to a candidacy. Rows are never deleted; only the
// status moves, which keeps the audit trail.
type Document struct {
	ID                     string         `db:"id" json:"id"`
	CandidacyID            string         `db:"candidacy_id" json:"candidacy_id"`
	Kind                   DocumentKind   `db:"kind" json:"kind"`
	Status                 DocumentStatus `db:"status" json:"status"`
	FileRef                *string        `db:"file_ref" json:"file_ref,omitempty"`
	ExpiresAt              *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	ExemptionJustification *string        `db:"exemption_justification" json:"exemption_justification,omitempty"`
	ReviewNote             *string        `db:"review_note" json:"review_note,omitempty"`
	ReviewedBy             *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

// HasJustification reports whether an exemption reason was recorded.
func (d Document) HasJustification() bool {
	return d.ExemptionJustification != nil && strings.TrimSpace(*d.ExemptionJustification) != ""
}

// ExpiredAt reports whether the expiration date is set and not after now.
func (d Document) ExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}
