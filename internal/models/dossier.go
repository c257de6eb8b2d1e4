package models

import "time"

// RequirementResolution is how one requirement resolves against submitted documents.
type RequirementResolution string

// Resolutions, best first.
const (
	ResolutionSatisfied RequirementResolution = "SATISFIED"
	ResolutionPending   RequirementResolution = "PENDING"
	ResolutionExpired   RequirementResolution = "EXPIRED"
	ResolutionMissing   RequirementResolution = "MISSING"
)

// Rank orders resolutions so the best matching document wins; higher is better.
func (r RequirementResolution) Rank() int {
	switch r {
	case ResolutionSatisfied:
		return 3
	case ResolutionPending:
		return 2
	case ResolutionExpired:
		return 1
	}
	return 0
}

// DossierWarningCode classifies data-integrity advisories.
type DossierWarningCode string

// Advisory codes.
const (
	WarningUnknownDocumentKind      DossierWarningCode = "UNKNOWN_DOCUMENT_KIND"
	WarningUnknownDocumentStatus    DossierWarningCode = "UNKNOWN_DOCUMENT_STATUS"
	WarningExemptionUnjustified     DossierWarningCode = "EXEMPTION_WITHOUT_JUSTIFICATION"
	WarningExpiredWithoutPastExpiry DossierWarningCode = "EXPIRED_WITHOUT_PAST_EXPIRATION"
)

// DossierWarning is advisory; it never blocks an evaluation.
type DossierWarning struct {
	Code       DossierWarningCode `json:"code"`
	DocumentID string             `json:"document_id,omitempty"`
	Kind       DocumentKind       `json:"kind,omitempty"`
	Message    string             `json:"message"`
}

// DossierItem is the per-requirement line of a report.
type DossierItem struct {
	Kind           DocumentKind          `json:"kind"`
	IsMandatory    bool                  `json:"is_mandatory"`
	DisplayOrder   int                   `json:"display_order"`
	Resolution     RequirementResolution `json:"resolution"`
	DocumentID     string                `json:"document_id,omitempty"`
	DocumentStatus DocumentStatus        `json:"document_status"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
}

// DossierReport is the compliance verdict for one candidacy or enrollment.
type DossierReport struct {
	ProgramTier      ProgramTier      `json:"program_tier"`
	Compliant        bool             `json:"compliant"`
	MissingMandatory []DocumentKind   `json:"missing_mandatory"`
	ExpiredMandatory []DocumentKind   `json:"expired_mandatory"`
	PendingMandatory []DocumentKind   `json:"pending_mandatory"`
	OptionalMissing  []DocumentKind   `json:"optional_missing"`
	Items            []DossierItem    `json:"items"`
	Warnings         []DossierWarning `json:"warnings"`
	CompletionRate   float64          `json:"completion_rate"`
	EvaluatedAt      time.Time        `json:"evaluated_at"`
}
