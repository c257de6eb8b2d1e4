package dto

// ComplianceExportRequest asks for a compliance audit file.
type ComplianceExportRequest struct {
	Scope       string `json:"scope" validate:"required,oneof=candidacies enrollments"`
	Format      string `json:"format" validate:"required,oneof=csv pdf"`
	ProgramTier string `json:"programTier,omitempty"`
}
