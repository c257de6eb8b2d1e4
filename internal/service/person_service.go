package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type personStore interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, person *models.Person) error
	MarkDossierSent(ctx context.Context, id string, sentAt time.Time) error
	Archive(ctx context.Context, id string, at time.Time) error
}

// PersonService manages contacts and their intake form dispatch.
type PersonService struct {
	repo      personStore
	lifecycle lifecycleResyncer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPersonService constructs a PersonService.
func NewPersonService(repo personStore, lifecycle lifecycleResyncer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, lifecycle: lifecycle, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns persons with pagination metadata.
func (s *PersonService) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown lifecycle stage")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	persons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "persons not found", "failed to list persons")
	}
	return persons, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a person by ID.
func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "person not found", "failed to load person")
	}
	return person, nil
}

// Create registers a person at stage NEW.
func (s *PersonService) Create(ctx context.Context, req dto.CreatePersonRequest) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	person := &models.Person{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          email,
		Phone:          req.Phone,
		LifecycleStage: models.LifecycleStageNew,
	}
	if err := s.repo.Create(ctx, person); err != nil {
		return nil, internalError(err, "failed to create person")
	}
	s.cache.Invalidate(ctx, lifecycleSummaryCacheKey)
	return person, nil
}

// MarkDossierSent stamps the intake form dispatch and resyncs the lifecycle.
func (s *PersonService) MarkDossierSent(ctx context.Context, id string, req dto.MarkDossierSentRequest) (*models.Person, *models.LifecycleTransition, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, nil, err
	}
	sentAt := s.now().UTC()
	if req.SentAt != nil {
		if req.SentAt.After(sentAt) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "sentAt cannot be in the future")
		}
		sentAt = req.SentAt.UTC()
	}
	if err := s.repo.MarkDossierSent(ctx, id, sentAt); err != nil {
		return nil, nil, storeError(err, "person not found", "failed to record dossier dispatch")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, id, "dossier dispatch")
	if err != nil {
		return nil, nil, err
	}
	person, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return person, transition, nil
}

// Archive soft-deletes a person.
func (s *PersonService) Archive(ctx context.Context, id string) error {
	person, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if person.ArchivedAt != nil {
		return appErrors.Clone(appErrors.ErrConflict, "person already archived")
	}
	if err := s.repo.Archive(ctx, id, s.now().UTC()); err != nil {
		return storeError(err, "person not found", "failed to archive person")
	}
	s.cache.Invalidate(ctx, lifecycleSummaryCacheKey)
	return nil
}
