package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

type tierRequirements struct {
	mandatory []models.DocumentKind
	optional  []models.DocumentKind
}

var requirementTable = map[models.ProgramTier]tierRequirements{
	models.ProgramTierShortCourse: {
		mandatory: []models.DocumentKind{
			models.DocumentKindIDFront,
			models.DocumentKindCivilInsurance,
			models.DocumentKindSignedQuote,
		},
		optional: []models.DocumentKind{models.DocumentKindCV},
	},
	models.ProgramTierProfessionalCertificate: {
		mandatory: []models.DocumentKind{
			models.DocumentKindIDFront,
			models.DocumentKindIDBack,
			models.DocumentKindCivilInsurance,
			models.DocumentKindSignedQuote,
			models.DocumentKindSignedTrainingAgreement,
		},
		optional: []models.DocumentKind{models.DocumentKindCV, models.DocumentKindPriorDiploma},
	},
	models.ProgramTierDiploma: {
		mandatory: []models.DocumentKind{
			models.DocumentKindIDFront,
			models.DocumentKindIDBack,
			models.DocumentKindProofOfAddress,
			models.DocumentKindPriorDiploma,
			models.DocumentKindCivilInsurance,
			models.DocumentKindSignedQuote,
			models.DocumentKindSignedTrainingAgreement,
			models.DocumentKindFinancingAgreement,
		},
		optional: []models.DocumentKind{models.DocumentKindPhoto, models.DocumentKindCV},
	},
	models.ProgramTierApprenticeship: {
		mandatory: []models.DocumentKind{
			models.DocumentKindIDFront,
			models.DocumentKindIDBack,
			models.DocumentKindProofOfAddress,
			models.DocumentKindCivilInsurance,
			models.DocumentKindMedicalCertificate,
			models.DocumentKindApprenticeshipContract,
		},
		optional: []models.DocumentKind{models.DocumentKindPhoto, models.DocumentKindCV},
	},
}

// RequirementCatalog maps program tiers to their ordered document requirements.
// Lookups for unknown tiers fall back to a configured default tier instead of failing,
// so intake is never blocked by a program that has no catalog entry yet.
type RequirementCatalog struct {
	fallback models.ProgramTier
	logger   *zap.Logger
}

// NewRequirementCatalog builds a catalog. An unknown fallback is replaced by SHORT_COURSE.
func NewRequirementCatalog(fallback models.ProgramTier, logger *zap.Logger) *RequirementCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, ok := requirementTable[fallback]; !ok {
		if fallback != "" {
			logger.Warn("unknown fallback program tier, using default", zap.String("program_tier", string(fallback)))
		}
		fallback = models.DefaultProgramTier
	}
	return &RequirementCatalog{fallback: fallback, logger: logger}
}

// Fallback returns the tier used for unknown lookups.
func (c *RequirementCatalog) Fallback() models.ProgramTier {
	return c.fallback
}

// Resolve returns the tier whose requirements apply to tier.
func (c *RequirementCatalog) Resolve(tier models.ProgramTier) models.ProgramTier {
	if _, ok := requirementTable[tier]; ok {
		return tier
	}
	c.logger.Warn("program tier missing from requirement catalog, falling back",
		zap.String("program_tier", string(tier)),
		zap.String("fallback_tier", string(c.fallback)),
	)
	return c.fallback
}

// RequirementsFor returns the ordered requirements of tier: mandatory kinds first, then
// optional ones. The slice is freshly allocated on every call.
func (c *RequirementCatalog) RequirementsFor(tier models.ProgramTier) []models.Requirement {
	_, requirements := c.lookup(tier)
	return requirements
}

// lookup resolves tier once and returns the resolved tier with its requirements.
func (c *RequirementCatalog) lookup(tier models.ProgramTier) (models.ProgramTier, []models.Requirement) {
	resolved := c.Resolve(tier)
	entry := requirementTable[resolved]

	requirements := make([]models.Requirement, 0, len(entry.mandatory)+len(entry.optional))
	order := 1
	for _, kind := range entry.mandatory {
		requirements = append(requirements, models.Requirement{ProgramTier: resolved, Kind: kind, IsMandatory: true, DisplayOrder: order})
		order++
	}
	for _, kind := range entry.optional {
		requirements = append(requirements, models.Requirement{ProgramTier: resolved, Kind: kind, DisplayOrder: order})
		order++
	}
	return resolved, requirements
}

// Tiers lists the tiers that have catalog entries.
func (c *RequirementCatalog) Tiers() []models.ProgramTier {
	return []models.ProgramTier{
		models.ProgramTierShortCourse,
		models.ProgramTierProfessionalCertificate,
		models.ProgramTierDiploma,
		models.ProgramTierApprenticeship,
	}
}
