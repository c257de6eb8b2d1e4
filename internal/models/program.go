package models

import (
	"fmt"
	"strings"
)

// ProgramTier categorises courses; it decides which documents a dossier needs.
type ProgramTier string

// Known program tiers.
const (
	ProgramTierShortCourse             ProgramTier = "SHORT_COURSE"
	ProgramTierProfessionalCertificate ProgramTier = "PROFESSIONAL_CERTIFICATE"
	ProgramTierDiploma                 ProgramTier = "DIPLOMA"
	ProgramTierApprenticeship          ProgramTier = "APPRENTICESHIP"
)

// DefaultProgramTier is used when a tier has no catalog entry yet.
const DefaultProgramTier = ProgramTierShortCourse

// Valid reports whether the tier is one of the known constants.
func (t ProgramTier) Valid() bool {
	switch t {
	case ProgramTierShortCourse, ProgramTierProfessionalCertificate, ProgramTierDiploma, ProgramTierApprenticeship:
		return true
	}
	return false
}

// NormalizeProgramTier upper-cases and trims raw input without validating it.
// Unknown tiers are legal on records; the catalog falls back for them.
func NormalizeProgramTier(raw string) ProgramTier {
	return ProgramTier(strings.ToUpper(strings.TrimSpace(raw)))
}

// ParseProgramTier converts raw input into a known tier.
func ParseProgramTier(raw string) (ProgramTier, error) {
	tier := NormalizeProgramTier(raw)
	if !tier.Valid() {
		return "", fmt.Errorf("unknown program tier %q", raw)
	}
	return tier, nil
}
