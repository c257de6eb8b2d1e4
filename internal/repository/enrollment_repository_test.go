package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "person_id", "candidacy_id", "program_tier", "status", "start_date", "end_date", "created_at", "updated_at"}

func TestEnrollmentRepositoryListByPerson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("enr-1", "person-1", "cand-1", "DIPLOMA", "COMPLETED", now, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + enrollmentColumns + " FROM enrollments WHERE person_id = $1 ORDER BY start_date, id LIMIT 1000 OFFSET 0")).
		WithArgs("person-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByPerson(context.Background(), "person-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollments[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListRejectsUnknownStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("enr-1", "person-1", "cand-1", "DIPLOMA", "GRADUATED", now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE program_tier = $1 AND status = $2")).
		WithArgs(models.ProgramTierDiploma, models.EnrollmentStatusInProgress).
		WillReturnRows(rows)

	_, err := repo.List(context.Background(), models.EnrollmentFilter{ProgramTier: models.ProgramTierDiploma, Status: models.EnrollmentStatusInProgress})
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestEnrollmentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(touchPersonQuery)).
		WithArgs("person-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM enrollments WHERE candidacy_id = $1)")).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{PersonID: "person-1", CandidacyID: "cand-1", ProgramTier: models.ProgramTierDiploma}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.Equal(t, models.EnrollmentStatusInProgress, enrollment.Status)
	assert.False(t, enrollment.StartDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateRejectsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(touchPersonQuery)).
		WithArgs("person-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM enrollments WHERE candidacy_id = $1)")).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Enrollment{PersonID: "person-1", CandidacyID: "cand-1"})
	require.ErrorIs(t, err, ErrEnrollmentExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	end := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $3, end_date = $4, updated_at = $5 WHERE id = $1 AND status = $2 RETURNING person_id ) UPDATE persons SET version = version + 1")).
		WithArgs("enr-1", models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted, &end, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted, &end))
	require.NoError(t, mock.ExpectationsWereMet())
}
