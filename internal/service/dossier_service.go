package service

import (
	"context"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// DossierService evaluates the dossier behind a candidacy or an enrollment.
type DossierService struct {
	candidacies candidacyReader
	enrollments enrollmentReader
	documents   documentLister
	evaluator   *DossierEvaluator
	metrics     *MetricsService
}

// NewDossierService constructs a DossierService.
func NewDossierService(candidacies candidacyReader, enrollments enrollmentReader, documents documentLister, evaluator *DossierEvaluator, metrics *MetricsService) *DossierService {
	return &DossierService{candidacies: candidacies, enrollments: enrollments, documents: documents, evaluator: evaluator, metrics: metrics}
}

// EvaluateCandidacy reports dossier compliance of a candidacy.
func (s *DossierService) EvaluateCandidacy(ctx context.Context, candidacyID string) (*models.DossierReport, error) {
	candidacy, err := s.candidacies.FindByID(ctx, candidacyID)
	if err != nil {
		return nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}
	return s.evaluate(ctx, candidacy.ID, candidacy.ProgramTier)
}

// EvaluateEnrollment reports compliance of the dossier collected by the enrollment's
// candidacy against the enrollment's program tier.
func (s *DossierService) EvaluateEnrollment(ctx context.Context, enrollmentID string) (*models.DossierReport, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "failed to load enrollment")
	}
	return s.evaluate(ctx, enrollment.CandidacyID, enrollment.ProgramTier)
}

func (s *DossierService) evaluate(ctx context.Context, candidacyID string, tier models.ProgramTier) (*models.DossierReport, error) {
	docs, err := s.documents.ListByCandidacy(ctx, candidacyID)
	if err != nil {
		return nil, storeError(err, "documents not found", "failed to load dossier")
	}
	report := s.evaluator.Evaluate(tier, docs)
	s.metrics.ObserveDossier(report)
	return &report, nil
}
