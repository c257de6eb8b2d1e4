package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

const documentColumns = `id, candidacy_id, kind, status, file_ref, expires_at, exemption_justification, review_note, reviewed_by, reviewed_at, created_at, updated_at`

const insertDocumentQuery = `INSERT INTO documents (id, candidacy_id, kind, status, file_ref, expires_at, exemption_justification, review_note, reviewed_by, reviewed_at, created_at, updated_at)
        VALUES (:id, :candidacy_id, :kind, :status, :file_ref, :expires_at, :exemption_justification, :review_note, :reviewed_by, :reviewed_at, :created_at, :updated_at)`

// DocumentRepository persists dossier documents. Rows are only status-transitioned.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindByID returns a document by its ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id); err != nil {
		return nil, err
	}
	if err := validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByCandidacy returns the candidacy dossier. Unknown kinds are passed through so
// the evaluator can report them; unknown statuses are rejected.
func (r *DocumentRepository) ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error) {
	var docs []models.Document
	query := "SELECT " + documentColumns + " FROM documents WHERE candidacy_id = $1 ORDER BY created_at, id"
	if err := r.db.SelectContext(ctx, &docs, query, candidacyID); err != nil {
		return nil, fmt.Errorf("list candidacy documents: %w", err)
	}
	for i := range docs {
		if err := validateDocument(&docs[i]); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Create inserts a submitted document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, insertDocumentQuery, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// UpdateReviewParams carries a review decision.
type UpdateReviewParams struct {
	ID                     string
	FromStatus             models.DocumentStatus
	Status                 models.DocumentStatus
	ExpiresAt              *time.Time
	ExemptionJustification *string
	ReviewNote             *string
	ReviewedBy             *string
	ReviewedAt             time.Time
}

// UpdateReview applies a review decision if the document is still in FromStatus.
func (r *DocumentRepository) UpdateReview(ctx context.Context, params UpdateReviewParams) error {
	const query = `UPDATE documents SET status = $3, expires_at = $4, exemption_justification = $5, review_note = $6,
        reviewed_by = $7, reviewed_at = $8, updated_at = $8 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, params.ID, params.FromStatus, params.Status, params.ExpiresAt,
		params.ExemptionJustification, params.ReviewNote, params.ReviewedBy, params.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update document review: %w", err)
	}
	return requireAffected(res, ErrVersionConflict)
}

func validateDocument(d *models.Document) error {
	if !d.Status.Valid() {
		return fmt.Errorf("%w: document %s has status %q", ErrIntegrity, d.ID, d.Status)
	}
	return nil
}
