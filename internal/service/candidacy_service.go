package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/internal/repository"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type candidacyStore interface {
	FindByID(ctx context.Context, id string) (*models.Candidacy, error)
	ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error)
	CreateWithPlaceholders(ctx context.Context, candidacy *models.Candidacy, placeholders []models.Document) error
	UpdateStatus(ctx context.Context, id string, from, to models.CandidacyStatus, decidedAt *time.Time) error
	UpdateFinancing(ctx context.Context, id string, quote, financed *int64, financer *string) error
}

type personReader interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
}

type documentLister interface {
	ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error)
}

// CandidacyServiceConfig holds admission gates.
type CandidacyServiceConfig struct {
	RequireCompliantDossier bool
}

// CandidacyService drives the admission workflow of candidacies.
type CandidacyService struct {
	repo      candidacyStore
	persons   personReader
	documents documentLister
	catalog   *RequirementCatalog
	evaluator *DossierEvaluator
	lifecycle lifecycleResyncer
	cfg       CandidacyServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCandidacyService constructs a CandidacyService.
func NewCandidacyService(
	repo candidacyStore,
	persons personReader,
	documents documentLister,
	catalog *RequirementCatalog,
	evaluator *DossierEvaluator,
	lifecycle lifecycleResyncer,
	cfg CandidacyServiceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *CandidacyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidacyService{
		repo:      repo,
		persons:   persons,
		documents: documents,
		catalog:   catalog,
		evaluator: evaluator,
		lifecycle: lifecycle,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns a candidacy by ID.
func (s *CandidacyService) Get(ctx context.Context, id string) (*models.Candidacy, error) {
	candidacy, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}
	return candidacy, nil
}

// ListByPerson returns the candidacy history of a person.
func (s *CandidacyService) ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error) {
	if _, err := s.persons.FindByID(ctx, personID); err != nil {
		return nil, storeError(err, "person not found", "failed to load person")
	}
	candidacies, err := s.repo.ListByPerson(ctx, personID)
	if err != nil {
		return nil, storeError(err, "candidacies not found", "failed to list candidacies")
	}
	return candidacies, nil
}

// Create opens a candidacy with an AWAITED placeholder for every catalog requirement.
// A person can hold at most one open candidacy.
func (s *CandidacyService) Create(ctx context.Context, req dto.CreateCandidacyRequest) (*models.Candidacy, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid candidacy payload")
	}
	person, err := s.persons.FindByID(ctx, req.PersonID)
	if err != nil {
		return nil, nil, storeError(err, "person not found", "failed to load person")
	}
	if person.ArchivedAt != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "person is archived")
	}

	tier := models.NormalizeProgramTier(req.ProgramTier)
	requirements := s.catalog.RequirementsFor(tier)
	placeholders := make([]models.Document, 0, len(requirements))
	for _, requirement := range requirements {
		placeholders = append(placeholders, models.Document{Kind: requirement.Kind, Status: models.DocumentStatusAwaited})
	}

	candidacy := &models.Candidacy{
		PersonID:    person.ID,
		ProgramTier: tier,
		ProgramName: strings.TrimSpace(req.ProgramName),
		Status:      models.CandidacyStatusReceived,
	}
	if err := s.repo.CreateWithPlaceholders(ctx, candidacy, placeholders); err != nil {
		if errors.Is(err, repository.ErrOpenCandidacyExists) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "person already has an open candidacy")
		}
		return nil, nil, storeError(err, "person not found", "failed to create candidacy")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, person.ID, "candidacy")
	if err != nil {
		return nil, nil, err
	}
	return candidacy, transition, nil
}

// UpdateStatus moves a candidacy one step along its workflow. Terminal candidacies are
// immutable, and acceptance requires a compliant dossier when the gate is enabled.
func (s *CandidacyService) UpdateStatus(ctx context.Context, id string, req dto.UpdateCandidacyStatusRequest) (*models.Candidacy, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	next, err := models.ParseCandidacyStatus(req.Status)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown candidacy status")
	}
	candidacy, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if candidacy.Status.Terminal() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("candidacy is %s and can no longer change", candidacy.Status))
	}
	if !candidacy.Status.CanTransitionTo(next) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move candidacy from %s to %s", candidacy.Status, next))
	}
	if next == models.CandidacyStatusAccepted && s.cfg.RequireCompliantDossier {
		if err := s.ensureCompliant(ctx, candidacy); err != nil {
			return nil, nil, err
		}
	}

	var decidedAt *time.Time
	if next.Terminal() {
		now := s.now().UTC()
		decidedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, candidacy.Status, next, decidedAt); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "candidacy changed concurrently, reload and retry")
		}
		return nil, nil, internalError(err, "failed to update candidacy status")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, candidacy.PersonID, "candidacy status")
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, transition, nil
}

// UpdateFinancing records quote and financing amounts on an open candidacy.
func (s *CandidacyService) UpdateFinancing(ctx context.Context, id string, req dto.UpdateFinancingRequest) (*models.Candidacy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid financing payload")
	}
	candidacy, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if candidacy.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "financing of a closed candidacy cannot change")
	}

	quote := candidacy.QuoteAmountCents
	if req.QuoteAmountCents != nil {
		quote = req.QuoteAmountCents
	}
	financed := candidacy.FinancedAmountCents
	if req.FinancedAmountCents != nil {
		financed = req.FinancedAmountCents
	}
	financer := candidacy.Financer
	if req.Financer != nil {
		trimmed := strings.TrimSpace(*req.Financer)
		financer = &trimmed
	}
	if quote != nil && financed != nil && *financed > *quote {
		return nil, appErrors.Clone(appErrors.ErrValidation, "financed amount exceeds the quote")
	}

	if err := s.repo.UpdateFinancing(ctx, id, quote, financed, financer); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "candidacy closed concurrently")
		}
		return nil, internalError(err, "failed to update financing")
	}
	return s.Get(ctx, id)
}

func (s *CandidacyService) ensureCompliant(ctx context.Context, candidacy *models.Candidacy) error {
	docs, err := s.documents.ListByCandidacy(ctx, candidacy.ID)
	if err != nil {
		return storeError(err, "documents not found", "failed to load dossier")
	}
	report := s.evaluator.Evaluate(candidacy.ProgramTier, docs)
	if report.Compliant {
		return nil
	}
	var blocking []string
	for _, kinds := range [][]models.DocumentKind{report.MissingMandatory, report.ExpiredMandatory, report.PendingMandatory} {
		for _, kind := range kinds {
			blocking = append(blocking, string(kind))
		}
	}
	return appErrors.Clone(appErrors.ErrDossierIncomplete,
		fmt.Sprintf("dossier is not compliant, unmet mandatory documents: %s", strings.Join(blocking, ", ")))
}
