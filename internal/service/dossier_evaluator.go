package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

// DossierEvaluator checks a dossier against the catalog for its program tier.
type DossierEvaluator struct {
	catalog *RequirementCatalog
	now     func() time.Time
	logger  *zap.Logger
}

// NewDossierEvaluator constructs an evaluator. A nil clock means time.Now.
func NewDossierEvaluator(catalog *RequirementCatalog, clock func() time.Time, logger *zap.Logger) *DossierEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	if catalog == nil {
		catalog = NewRequirementCatalog(models.DefaultProgramTier, logger)
	}
	return &DossierEvaluator{catalog: catalog, now: clock, logger: logger}
}

// Evaluate reports compliance of documents for tier as of the evaluator's clock.
// Expiration is checked against that instant, so the verdict for unchanged
// documents can change between calls.
func (e *DossierEvaluator) Evaluate(tier models.ProgramTier, documents []models.Document) models.DossierReport {
	resolved, requirements := e.catalog.lookup(tier)
	report := EvaluateDossier(resolved, requirements, documents, e.now().UTC())
	for _, warning := range report.Warnings {
		e.logger.Warn("dossier data integrity warning",
			zap.String("program_tier", string(report.ProgramTier)),
			zap.String("code", string(warning.Code)),
			zap.String("document_id", warning.DocumentID),
			zap.String("kind", string(warning.Kind)),
		)
	}
	return report
}

// EvaluateDossier resolves every requirement against documents at now. It never fails:
// requirements without a document resolve as missing, and documents with an unknown
// kind or status are left out of the verdict and reported as warnings.
func EvaluateDossier(tier models.ProgramTier, requirements []models.Requirement, documents []models.Document, now time.Time) models.DossierReport {
	report := models.DossierReport{
		ProgramTier:      tier,
		MissingMandatory: []models.DocumentKind{},
		ExpiredMandatory: []models.DocumentKind{},
		PendingMandatory: []models.DocumentKind{},
		OptionalMissing:  []models.DocumentKind{},
		Items:            make([]models.DossierItem, 0, len(requirements)),
		Warnings:         []models.DossierWarning{},
		EvaluatedAt:      now,
	}

	required := make(map[models.DocumentKind]struct{}, len(requirements))
	for _, req := range requirements {
		required[req.Kind] = struct{}{}
	}

	best := make(map[models.DocumentKind]candidateMatch, len(requirements))
	for i := range documents {
		doc := documents[i]
		if !doc.Kind.Valid() {
			report.Warnings = append(report.Warnings, models.DossierWarning{
				Code:       models.WarningUnknownDocumentKind,
				DocumentID: doc.ID,
				Kind:       doc.Kind,
				Message:    fmt.Sprintf("document kind %q is not in the catalog", doc.Kind),
			})
			continue
		}
		if !doc.Status.Valid() {
			report.Warnings = append(report.Warnings, models.DossierWarning{
				Code:       models.WarningUnknownDocumentStatus,
				DocumentID: doc.ID,
				Kind:       doc.Kind,
				Message:    fmt.Sprintf("document status %q is not recognised", doc.Status),
			})
			continue
		}
		if _, ok := required[doc.Kind]; !ok {
			continue
		}
		report.Warnings = append(report.Warnings, documentAdvisories(doc, now)...)

		match := candidateMatch{doc: doc, resolution: resolveDocument(doc, now)}
		if current, ok := best[doc.Kind]; !ok || match.betterThan(current) {
			best[doc.Kind] = match
		}
	}

	satisfied := 0
	for _, req := range requirements {
		item := models.DossierItem{
			Kind:           req.Kind,
			IsMandatory:    req.IsMandatory,
			DisplayOrder:   req.DisplayOrder,
			Resolution:     models.ResolutionMissing,
			DocumentStatus: models.DocumentStatusAwaited,
		}
		if match, ok := best[req.Kind]; ok {
			item.Resolution = match.resolution
			item.DocumentID = match.doc.ID
			item.DocumentStatus = match.doc.Status
			item.ExpiresAt = match.doc.ExpiresAt
		}
		report.Items = append(report.Items, item)

		if item.Resolution == models.ResolutionSatisfied {
			satisfied++
			continue
		}
		if !req.IsMandatory {
			if item.Resolution == models.ResolutionMissing || item.Resolution == models.ResolutionExpired {
				report.OptionalMissing = append(report.OptionalMissing, req.Kind)
			}
			continue
		}
		switch item.Resolution {
		case models.ResolutionMissing:
			report.MissingMandatory = append(report.MissingMandatory, req.Kind)
		case models.ResolutionExpired:
			report.ExpiredMandatory = append(report.ExpiredMandatory, req.Kind)
		case models.ResolutionPending:
			report.PendingMandatory = append(report.PendingMandatory, req.Kind)
		}
	}

	report.Compliant = len(report.MissingMandatory) == 0 &&
		len(report.ExpiredMandatory) == 0 &&
		len(report.PendingMandatory) == 0
	report.CompletionRate = 1
	if len(requirements) > 0 {
		report.CompletionRate = float64(satisfied) / float64(len(requirements))
	}
	return report
}

type candidateMatch struct {
	doc        models.Document
	resolution models.RequirementResolution
}

// betterThan prefers the higher resolution, then the most recently updated document.
func (m candidateMatch) betterThan(other candidateMatch) bool {
	if m.resolution.Rank() != other.resolution.Rank() {
		return m.resolution.Rank() > other.resolution.Rank()
	}
	return m.doc.UpdatedAt.After(other.doc.UpdatedAt)
}

func resolveDocument(doc models.Document, now time.Time) models.RequirementResolution {
	switch doc.Status {
	case models.DocumentStatusValid:
		if doc.ExpiredAt(now) {
			return models.ResolutionExpired
		}
		return models.ResolutionSatisfied
	case models.DocumentStatusExempted:
		return models.ResolutionSatisfied
	case models.DocumentStatusExpired:
		return models.ResolutionExpired
	case models.DocumentStatusReceived, models.DocumentStatusPendingReview:
		return models.ResolutionPending
	case models.DocumentStatusAwaited, models.DocumentStatusRejected:
		return models.ResolutionMissing
	}
	return models.ResolutionMissing
}

func documentAdvisories(doc models.Document, now time.Time) []models.DossierWarning {
	var warnings []models.DossierWarning
	if doc.Status == models.DocumentStatusExempted && !doc.HasJustification() {
		warnings = append(warnings, models.DossierWarning{
			Code:       models.WarningExemptionUnjustified,
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			Message:    "exempted document has no recorded justification",
		})
	}
	if doc.Status == models.DocumentStatusExpired && !doc.ExpiredAt(now) {
		warnings = append(warnings, models.DossierWarning{
			Code:       models.WarningExpiredWithoutPastExpiry,
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			Message:    "document marked expired without a past expiration date",
		})
	}
	return warnings
}
