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

type documentStore interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	UpdateReview(ctx context.Context, params repository.UpdateReviewParams) error
}

type candidacyReader interface {
	FindByID(ctx context.Context, id string) (*models.Candidacy, error)
}

// DocumentService records submitted files and review decisions. Documents are never
// deleted; every change is a status transition on the row.
type DocumentService struct {
	repo        documentStore
	candidacies candidacyReader
	lifecycle   lifecycleResyncer
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewDocumentService constructs a DocumentService. A nil clock means time.Now.
func NewDocumentService(repo documentStore, candidacies candidacyReader, lifecycle lifecycleResyncer, validate *validator.Validate, clock func() time.Time, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &DocumentService{repo: repo, candidacies: candidacies, lifecycle: lifecycle, validator: validate, logger: logger, now: clock}
}

// ListByCandidacy returns every document row of a candidacy, placeholders included.
func (s *DocumentService) ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error) {
	if _, err := s.candidacies.FindByID(ctx, candidacyID); err != nil {
		return nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}
	docs, err := s.repo.ListByCandidacy(ctx, candidacyID)
	if err != nil {
		return nil, storeError(err, "documents not found", "failed to list documents")
	}
	return docs, nil
}

// Submit attaches a received file to a candidacy as a new RECEIVED row.
func (s *DocumentService) Submit(ctx context.Context, candidacyID string, req dto.SubmitDocumentRequest) (*models.Document, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown document kind")
	}
	candidacy, err := s.candidacies.FindByID(ctx, candidacyID)
	if err != nil {
		return nil, nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}
	if candidacy.Status == models.CandidacyStatusRejected {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "candidacy was rejected")
	}

	fileRef := strings.TrimSpace(req.FileRef)
	doc := &models.Document{
		CandidacyID: candidacy.ID,
		Kind:        kind,
		Status:      models.DocumentStatusReceived,
		FileRef:     &fileRef,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, nil, internalError(err, "failed to store document")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, candidacy.PersonID, "document")
	if err != nil {
		return nil, nil, err
	}
	return doc, transition, nil
}

// Review applies a reviewer decision. EXEMPTED needs a justification and EXPIRED needs
// an expiration date that has passed.
func (s *DocumentService) Review(ctx context.Context, documentID string, req dto.ReviewDocumentRequest) (*models.Document, *models.LifecycleTransition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	status, err := models.ParseDocumentStatus(req.Status)
	if err != nil || !status.Reviewable() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q cannot be set by a review", req.Status))
	}

	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return nil, nil, storeError(err, "document not found", "failed to load document")
	}
	candidacy, err := s.candidacies.FindByID(ctx, doc.CandidacyID)
	if err != nil {
		return nil, nil, storeError(err, "candidacy not found", "failed to load candidacy")
	}

	now := s.now().UTC()
	expiresAt := doc.ExpiresAt
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt
	}
	var justification *string
	switch status {
	case models.DocumentStatusExempted:
		if req.Justification == nil || strings.TrimSpace(*req.Justification) == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "an exemption requires a justification")
		}
		trimmed := strings.TrimSpace(*req.Justification)
		justification = &trimmed
	case models.DocumentStatusExpired:
		if expiresAt == nil || expiresAt.After(now) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "an expired document needs an expiration date in the past")
		}
	case models.DocumentStatusValid, models.DocumentStatusPendingReview, models.DocumentStatusRejected:
		if doc.FileRef == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document has no submitted file to review")
		}
		if status == models.DocumentStatusValid && expiresAt != nil && !expiresAt.After(now) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "expiration date already passed, mark the document EXPIRED instead")
		}
	}

	err = s.repo.UpdateReview(ctx, repository.UpdateReviewParams{
		ID:                     doc.ID,
		FromStatus:             doc.Status,
		Status:                 status,
		ExpiresAt:              expiresAt,
		ExemptionJustification: justification,
		ReviewNote:             req.Note,
		ReviewedBy:             req.ReviewedBy,
		ReviewedAt:             now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "document was reviewed concurrently, reload and retry")
		}
		return nil, nil, internalError(err, "failed to record review")
	}

	transition, err := resyncAfter(ctx, s.lifecycle, s.logger, candidacy.PersonID, "document review")
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.repo.FindByID(ctx, doc.ID)
	if err != nil {
		return nil, nil, storeError(err, "document not found", "failed to reload document")
	}
	return updated, transition, nil
}
