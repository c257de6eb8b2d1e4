package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ComplianceExportScope selects which dossiers are audited.
type ComplianceExportScope string

const (
	ExportScopeCandidacies ComplianceExportScope = "candidacies"
	ExportScopeEnrollments ComplianceExportScope = "enrollments"
)

// ComplianceExport describes a rendered audit file and how to download it.
type ComplianceExport struct {
	ID           string                `json:"id"`
	Scope        ComplianceExportScope `json:"scope"`
	Format       ExportFormat          `json:"format"`
	ProgramTier  ProgramTier           `json:"program_tier,omitempty"`
	Rows         int                   `json:"rows"`
	Compliant    int                   `json:"compliant"`
	RelativePath string                `json:"-"`
	Token        string                `json:"token"`
	URL          string                `json:"url"`
	GeneratedAt  time.Time             `json:"generated_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
}
