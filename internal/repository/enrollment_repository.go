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

const enrollmentColumns = `id, person_id, candidacy_id, program_tier, status, start_date, end_date, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
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
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY start_date, id LIMIT %d OFFSET %d", enrollmentColumns, clause, limit, offset)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	for i := range enrollments {
		if err := validateEnrollment(&enrollments[i]); err != nil {
			return nil, err
		}
	}
	return enrollments, nil
}

// ListByPerson returns every enrollment of a person.
func (r *EnrollmentRepository) ListByPerson(ctx context.Context, personID string) ([]models.Enrollment, error) {
	return r.List(ctx, models.EnrollmentFilter{PersonID: personID})
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = $1", id); err != nil {
		return nil, err
	}
	if err := validateEnrollment(&enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusInProgress
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, person_id, candidacy_id, program_tier, status, start_date, end_date, created_at, updated_at)
        VALUES (:id, :person_id, :candidacy_id, :program_tier, :status, :start_date, :end_date, :created_at, :updated_at)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = touchPerson(ctx, tx, enrollment.PersonID); err != nil {
		return err
	}
	var exists bool
	if err = tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM enrollments WHERE candidacy_id = $1)", enrollment.CandidacyID); err != nil {
		return fmt.Errorf("check candidacy enrollment: %w", err)
	}
	if exists {
		return ErrEnrollmentExists
	}
	if _, err = tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// UpdateStatus changes status if the stored status is still from.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, endDate *time.Time) error {
	const query = `WITH moved AS (
            UPDATE enrollments SET status = $3, end_date = $4, updated_at = $5 WHERE id = $1 AND status = $2 RETURNING person_id
        )
        UPDATE persons SET version = version + 1, updated_at = $5 WHERE id IN (SELECT person_id FROM moved)`
	res, err := r.db.ExecContext(ctx, query, id, from, to, endDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireAffected(res, ErrVersionConflict)
}

func validateEnrollment(e *models.Enrollment) error {
	if !e.Status.Valid() {
		return fmt.Errorf("%w: enrollment %s has status %q", ErrIntegrity, e.ID, e.Status)
	}
	return nil
}
