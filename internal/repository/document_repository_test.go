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

var documentRowColumns = []string{"id", "candidacy_id", "kind", "status", "file_ref", "expires_at", "exemption_justification", "review_note", "reviewed_by", "reviewed_at", "created_at", "updated_at"}

func TestDocumentRepositoryListByCandidacyKeepsUnknownKinds(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-1", "cand-1", "ID_FRONT", "VALID", "s3://bucket/id.png", now.Add(time.Hour), nil, nil, "reviewer", now, now, now).
		AddRow("doc-2", "cand-1", "DRIVING_LICENSE", "RECEIVED", nil, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE candidacy_id = $1 ORDER BY created_at, id")).
		WithArgs("cand-1").
		WillReturnRows(rows)

	docs, err := repo.ListByCandidacy(context.Background(), "cand-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.DocumentKind("DRIVING_LICENSE"), docs[1].Kind)
	require.NotNil(t, docs[0].ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByCandidacyRejectsUnknownStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-1", "cand-1", "ID_FRONT", "LOST", nil, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE candidacy_id = $1")).
		WithArgs("cand-1").
		WillReturnRows(rows)

	_, err := repo.ListByCandidacy(context.Background(), "cand-1")
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestDocumentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{CandidacyID: "cand-1", Kind: models.DocumentKindCV, Status: models.DocumentStatusReceived}
	require.NoError(t, repo.Create(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateReview(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	reviewedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	justification := "waived by director"
	query := regexp.QuoteMeta("UPDATE documents SET status = $3")
	mock.ExpectExec(query).
		WithArgs("doc-1", models.DocumentStatusReceived, models.DocumentStatusExempted, nil, &justification, nil, nil, reviewedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WillReturnResult(sqlmock.NewResult(0, 0))

	params := UpdateReviewParams{
		ID:                     "doc-1",
		FromStatus:             models.DocumentStatusReceived,
		Status:                 models.DocumentStatusExempted,
		ExemptionJustification: &justification,
		ReviewedAt:             reviewedAt,
	}
	require.NoError(t, repo.UpdateReview(context.Background(), params))
	require.ErrorIs(t, repo.UpdateReview(context.Background(), params), ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
