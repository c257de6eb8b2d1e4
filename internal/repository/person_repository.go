package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

const personColumns = `id, first_name, last_name, email, phone, lifecycle_stage, dossier_sent_at, version, archived_at, created_at, updated_at`

// PersonRepository manages persistence for person records.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs a PersonRepository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// List returns persons matching the provided filters.
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeArchived {
		conditions = append(conditions, "archived_at IS NULL")
	}
	if filter.Stage != "" {
		conditions = append(conditions, fmt.Sprintf("lifecycle_stage = $%d", len(args)+1))
		args = append(args, filter.Stage)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"last_name":  "last_name",
		"stage":      "lifecycle_stage",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM persons%s ORDER BY %s %s LIMIT %d OFFSET %d", personColumns, clause, column, order, size, offset)
	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}
	for i := range persons {
		if err := validatePerson(&persons[i]); err != nil {
			return nil, 0, err
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM persons"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}
	return persons, total, nil
}

// FindByID fetches a person by ID.
func (r *PersonRepository) FindByID(ctx context.Context, id string) (*models.Person, error) {
	query := "SELECT " + personColumns + " FROM persons WHERE id = $1"
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	if err := validatePerson(&person); err != nil {
		return nil, err
	}
	return &person, nil
}

// ExistsByEmail checks whether an active person already uses email.
func (r *PersonRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM persons WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL LIMIT 1", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check person email: %w", err)
	}
	return true, nil
}

// Create inserts a new person at version 1.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now
	if person.LifecycleStage == "" {
		person.LifecycleStage = models.LifecycleStageNew
	}
	person.Version = 1
	const query = `INSERT INTO persons (id, first_name, last_name, email, phone, lifecycle_stage, dossier_sent_at, version, archived_at, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :lifecycle_stage, :dossier_sent_at, :version, :archived_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// MarkDossierSent stamps the intake form dispatch time.
func (r *PersonRepository) MarkDossierSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE persons SET dossier_sent_at = $2, version = version + 1, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, sentAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark dossier sent: %w", err)
	}
	return requireAffected(res, sql.ErrNoRows)
}

// Archive soft-deletes a person; the row stays for history.
func (r *PersonRepository) Archive(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE persons SET archived_at = $2, updated_at = $2 WHERE id = $1 AND archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("archive person: %w", err)
	}
	return requireAffected(res, sql.ErrNoRows)
}

// UpdateLifecycleStage writes stage only if the row is still at expectedVersion.
func (r *PersonRepository) UpdateLifecycleStage(ctx context.Context, id string, stage models.LifecycleStage, expectedVersion int64) error {
	const query = `UPDATE persons SET lifecycle_stage = $2, version = version + 1, updated_at = $4 WHERE id = $1 AND version = $3`
	res, err := r.db.ExecContext(ctx, query, id, stage, expectedVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lifecycle stage: %w", err)
	}
	return requireAffected(res, ErrVersionConflict)
}

// ListIDs pages through person IDs in key order, starting after afterID.
func (r *PersonRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM persons WHERE id > $1 ORDER BY id LIMIT $2", afterID, limit); err != nil {
		return nil, fmt.Errorf("list person ids: %w", err)
	}
	return ids, nil
}

// CountByStage returns the lifecycle distribution of non-archived persons.
func (r *PersonRepository) CountByStage(ctx context.Context) ([]models.LifecycleStageCount, error) {
	const query = `SELECT lifecycle_stage, COUNT(*) AS count FROM persons WHERE archived_at IS NULL GROUP BY lifecycle_stage ORDER BY lifecycle_stage`
	var counts []models.LifecycleStageCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count persons by stage: %w", err)
	}
	return counts, nil
}

func validatePerson(p *models.Person) error {
	if !p.LifecycleStage.Valid() {
		return fmt.Errorf("%w: person %s has lifecycle stage %q", ErrIntegrity, p.ID, p.LifecycleStage)
	}
	return nil
}

const touchPersonQuery = `UPDATE persons SET version = version + 1, updated_at = $2 WHERE id = $1`

// touchPerson bumps the person version inside tx and holds the row lock until
// the transaction ends. Child writes that feed the lifecycle stage go through it.
func touchPerson(ctx context.Context, tx *sqlx.Tx, personID string) error {
	res, err := tx.ExecContext(ctx, touchPersonQuery, personID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("lock person: %w", err)
	}
	return requireAffected(res, sql.ErrNoRows)
}

func requireAffected(res sql.Result, errNone error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return errNone
	}
	return nil
}
