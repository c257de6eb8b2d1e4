package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

const candidacyColumns = `id, person_id, program_tier, program_name, status, quote_amount_cents, financed_amount_cents, financer, decided_at, created_at, updated_at`

var openCandidacyStatuses = []interface{}{models.CandidacyStatusAccepted, models.CandidacyStatusRejected}

const openCandidacyQuery = `SELECT EXISTS (SELECT 1 FROM candidacies WHERE person_id = $1 AND status NOT IN ($2, $3))`

// CandidacyRepository handles persistence of candidacies.
type CandidacyRepository struct {
	db *sqlx.DB
}

// NewCandidacyRepository constructs the repository.
func NewCandidacyRepository(db *sqlx.DB) *CandidacyRepository {
	return &CandidacyRepository{db: db}
}

// FindByID returns a candidacy by its ID.
func (r *CandidacyRepository) FindByID(ctx context.Context, id string) (*models.Candidacy, error) {
	var candidacy models.Candidacy
	if err := r.db.GetContext(ctx, &candidacy, "SELECT "+candidacyColumns+" FROM candidacies WHERE id = $1", id); err != nil {
		return nil, err
	}
	if err := validateCandidacy(&candidacy); err != nil {
		return nil, err
	}
	return &candidacy, nil
}

// ListByPerson returns every candidacy of a person, oldest first.
func (r *CandidacyRepository) ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error) {
	var candidacies []models.Candidacy
	query := "SELECT " + candidacyColumns + " FROM candidacies WHERE person_id = $1 ORDER BY created_at, id"
	if err := r.db.SelectContext(ctx, &candidacies, query, personID); err != nil {
		return nil, fmt.Errorf("list person candidacies: %w", err)
	}
	for i := range candidacies {
		if err := validateCandidacy(&candidacies[i]); err != nil {
			return nil, err
		}
	}
	return candidacies, nil
}

// List returns candidacies narrowed by filter.
func (r *CandidacyRepository) List(ctx context.Context, filter models.CandidacyFilter) ([]models.Candidacy, error) {
	var conditions []string
	var args []interface{}
	if filter.PersonID != "" {
		conditions = append(conditions, fmt.Sprintf("person_id = $%d", len(args)+1))
		args = append(args, filter.PersonID)
	}
	if filter.ProgramTier != "" {
		conditions = append(conditions, fmt.Sprintf("program_tier = $%d", len(args)+1))
		args = append(args, filter.ProgramTier)
	}
	if filter.OpenOnly {
		conditions = append(conditions, fmt.Sprintf("status NOT IN ($%d, $%d)", len(args)+1, len(args)+2))
		args = append(args, openCandidacyStatuses...)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM candidacies%s ORDER BY created_at, id LIMIT %d OFFSET %d", candidacyColumns, clause, limit, offset)

	var candidacies []models.Candidacy
	if err := r.db.SelectContext(ctx, &candidacies, query, args...); err != nil {
		return nil, fmt.Errorf("list candidacies: %w", err)
	}
	for i := range candidacies {
		if err := validateCandidacy(&candidacies[i]); err != nil {
			return nil, err
		}
	}
	return candidacies, nil
}

// CreateWithPlaceholders inserts the candidacy and its AWAITED placeholder documents atomically.
func (r *CandidacyRepository) CreateWithPlaceholders(ctx context.Context, candidacy *models.Candidacy, placeholders []models.Document) (err error) {
	now := time.Now().UTC()
	if candidacy.ID == "" {
		candidacy.ID = uuid.NewString()
	}
	if candidacy.Status == "" {
		candidacy.Status = models.CandidacyStatusReceived
	}
	candidacy.CreatedAt = now
	candidacy.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candidacy transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = touchPerson(ctx, tx, candidacy.PersonID); err != nil {
		return err
	}
	var open bool
	if err = tx.GetContext(ctx, &open, openCandidacyQuery, candidacy.PersonID, models.CandidacyStatusAccepted, models.CandidacyStatusRejected); err != nil {
		return fmt.Errorf("check open candidacy: %w", err)
	}
	if open {
		return ErrOpenCandidacyExists
	}

	const insertCandidacy = `INSERT INTO candidacies (id, person_id, program_tier, program_name, status, quote_amount_cents, financed_amount_cents, financer, decided_at, created_at, updated_at)
        VALUES (:id, :person_id, :program_tier, :program_name, :status, :quote_amount_cents, :financed_amount_cents, :financer, :decided_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertCandidacy, candidacy); err != nil {
		return fmt.Errorf("create candidacy: %w", err)
	}

	for i := range placeholders {
		doc := &placeholders[i]
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		doc.CandidacyID = candidacy.ID
		doc.Status = models.DocumentStatusAwaited
		doc.CreatedAt = now
		doc.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertDocumentQuery, doc); err != nil {
			return fmt.Errorf("create placeholder document %s: %w", doc.Kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit candidacy: %w", err)
	}
	return nil
}

// UpdateStatus moves a candidacy from one status to another; it fails with
// ErrVersionConflict when the stored status is no longer from.
func (r *CandidacyRepository) UpdateStatus(ctx context.Context, id string, from, to models.CandidacyStatus, decidedAt *time.Time) error {
	const query = `WITH moved AS (
            UPDATE candidacies SET status = $3, decided_at = $4, updated_at = $5 WHERE id = $1 AND status = $2 RETURNING person_id
        )
        UPDATE persons SET version = version + 1, updated_at = $5 WHERE id IN (SELECT person_id FROM moved)`
	res, err := r.db.ExecContext(ctx, query, id, from, to, decidedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update candidacy status: %w", err)
	}
	return requireAffected(res, ErrVersionConflict)
}

// UpdateFinancing records quote and financing amounts on an open candidacy.
func (r *CandidacyRepository) UpdateFinancing(ctx context.Context, id string, quote, financed *int64, financer *string) error {
	const query = `UPDATE candidacies SET quote_amount_cents = $2, financed_amount_cents = $3, financer = $4, updated_at = $5
        WHERE id = $1 AND status NOT IN ($6, $7)`
	res, err := r.db.ExecContext(ctx, query, id, quote, financed, financer, time.Now().UTC(), models.CandidacyStatusAccepted, models.CandidacyStatusRejected)
	if err != nil {
		return fmt.Errorf("update candidacy financing: %w", err)
	}
	return requireAffected(res, ErrVersionConflict)
}

func validateCandidacy(c *models.Candidacy) error {
	if !c.Status.Valid() {
		return fmt.Errorf("%w: candidacy %s has status %q", ErrIntegrity, c.ID, c.Status)
	}
	return nil
}
