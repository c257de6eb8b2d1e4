package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/internal/repository"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, endDate *time.Time) error
}

// EnrollmentService turns accepted candidacies into enrollments and tracks their status.
type EnrollmentService struct {
	repo        enrollmentStore
	candidacies candidacyReader
	lifecycle   lifecycleResyncer
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, candidacies candidacyReader, lifecycle lifecycleResyncer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, candidacies: candidacies, lifecycle: lifecycle, validator: validate, logger: logger, now: time.Now}
}

// Get returns an enrollment by ID.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "failed to load enrollment")
	}
	return enrollment, nil
}

// Create enrolls the person behind an accepted candidacy. Each candidacy yields at most one enrollment.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.Enrollment, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	candidacy, err := s.candidacies.FindByID(ctx, req.CandidacyID)
	if err != nil {
		return nil, nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}
	if candidacy.Status != models.CandidacyStatusAccepted {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("candidacy is %s, only accepted candidacies can be enrolled", candidacy.Status))
	}

	enrollment := &models.Enrollment{
		PersonID:    candidacy.PersonID,
		CandidacyID: candidacy.ID,
		ProgramTier: candidacy.ProgramTier,
		Status:      models.EnrollmentStatusInProgress,
	}
	if req.StartDate != nil {
		enrollment.StartDate = req.StartDate.UTC()
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrEnrollmentExists) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "candidacy already has an enrollment")
		}
		return nil, nil, storeError(err, "person not found", "failed to create enrollment")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, enrollment.PersonID, "enrollment")
	if err != nil {
		return nil, nil, err
	}
	return enrollment, transition, nil
}

// UpdateStatus changes the enrollment status; terminal statuses stamp the end date.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest) (*models.Enrollment, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	next, err := models.ParseEnrollmentStatus(req.Status)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown enrollment status")
	}
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if enrollment.Status.Terminal() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("enrollment is %s and can no longer change", enrollment.Status))
	}
	if !enrollment.Status.CanTransitionTo(next) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move enrollment from %s to %s", enrollment.Status, next))
	}

	var endDate *time.Time
	if next.Terminal() {
		end := s.now().UTC()
		if req.EndDate != nil {
			end = req.EndDate.UTC()
		}
		if end.Before(enrollment.StartDate) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
		}
		endDate = &end
	}

	if err := s.repo.UpdateStatus(ctx, id, enrollment.Status, next, endDate); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "enrollment changed concurrently, reload and retry")
		}
		return nil, nil, internalError(err, "failed to update enrollment status")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, enrollment.PersonID, "enrollment status")
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, transition, nil
}
