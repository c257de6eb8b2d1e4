package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

func placeholder(t *testing.T, f *admissionsFixture, candidacyID string, kind models.DocumentKind) models.Document {
	t.Helper()
	docs, err := f.documents.ListByCandidacy(context.Background(), candidacyID)
	require.NoError(t, err)
	for _, doc := range docs {
		if doc.Kind == kind {
			return doc
		}
	}
	t.Fatalf("no placeholder for %s", kind)
	return models.Document{}
}

func TestDocumentServiceSubmit(t *testing.T) {
	f := newAdmissionsFixture(t, models.Person{ID: "p1"})
	candidacy := openCandidacy(t, f, "p1", "SHORT_COURSE")

	doc, _, err := f.documentSvc.Submit(context.Background(), candidacy.ID, dto.SubmitDocumentRequest{Kind: "id_front", FileRef: " uploads/id.png "})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentKindIDFront, doc.Kind)
	assert.Equal(t, models.DocumentStatusReceived, doc.Status)
	assert.Equal(t, "uploads/id.png", *doc.FileRef)

	report, err := f.dossierSvc.EvaluateCandidacy(context.Background(), candidacy.ID)
	require.NoError(t, err)
	assert.Contains(t, report.PendingMandatory, models.DocumentKindIDFront)
	assert.NotContains(t, report.MissingMandatory, models.DocumentKindIDFront)
}

func TestDocumentServiceSubmitValidation(t *testing.T) {
	f := newAdmissionsFixture(t, models.Person{ID: "p1"})
	candidacy := openCandidacy(t, f, "p1", "SHORT_COURSE")

	_, _, err := f.documentSvc.Submit(context.Background(), candidacy.ID, dto.SubmitDocumentRequest{Kind: "PASSPORT_SCAN", FileRef: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = f.documentSvc.Submit(context.Background(), "missing", dto.SubmitDocumentRequest{Kind: "CV", FileRef: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	f.advance(t, candidacy.ID, models.CandidacyStatusRejected)
	_, _, err = f.documentSvc.Submit(context.Background(), candidacy.ID, dto.SubmitDocumentRequest{Kind: "CV", FileRef: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestDocumentServiceReviewExemption(t *testing.T) {
	f := newAdmissionsFixture(t, models.Person{ID: "p1"})
	candidacy := openCandidacy(t, f, "p1", "SHORT_COURSE")
	insurance := placeholder(t, f, candidacy.ID, models.DocumentKindCivilInsurance)

	_, _, err := f.documentSvc.Review(context.Background(), insurance.ID, dto.ReviewDocumentRequest{Status: "EXEMPTED", Justification: strPtr("   ")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	reviewed, _, err := f.documentSvc.Review(context.Background(), insurance.ID, dto.ReviewDocumentRequest{
		Status:        "EXEMPTED",
		Justification: strPtr(" covered by employer policy "),
		ReviewedBy:    strPtr("registrar"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusExempted, reviewed.Status)
	assert.Equal(t, "covered by employer policy", *reviewed.ExemptionJustification)
	assert.Equal(t, fixedNow, *reviewed.ReviewedAt)

	report, err := f.dossierSvc.EvaluateCandidacy(context.Background(), candidacy.ID)
	require.NoError(t, err)
	assert.NotContains(t, report.MissingMandatory, models.DocumentKindCivilInsurance)
	assert.Empty(t, report.Warnings)
}

func TestDocumentServiceReviewRules(t *testing.T) {
	f := newAdmissionsFixture(t, models.Person{ID: "p1"})
	candidacy := openCandidacy(t, f, "p1", "SHORT_COURSE")
	quote := placeholder(t, f, candidacy.ID, models.DocumentKindSignedQuote)

	_, _, err := f.documentSvc.Review(context.Background(), quote.ID, dto.ReviewDocumentRequest{Status: "AWAITED"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = f.documentSvc.Review(context.Background(), quote.ID, dto.ReviewDocumentRequest{Status: "VALID"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	future := fixedNow.Add(24 * time.Hour)
	_, _, err = f.documentSvc.Review(context.Background(), quote.ID, dto.ReviewDocumentRequest{Status: "EXPIRED", ExpiresAt: &future})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	submitted, _, err := f.documentSvc.Submit(context.Background(), candidacy.ID, dto.SubmitDocumentRequest{Kind: "SIGNED_QUOTE", FileRef: "q.pdf"})
	require.NoError(t, err)
	past := fixedNow.Add(-time.Hour)
	_, _, err = f.documentSvc.Review(context.Background(), submitted.ID, dto.ReviewDocumentRequest{Status: "VALID", ExpiresAt: &past})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	expired, _, err := f.documentSvc.Review(context.Background(), submitted.ID, dto.ReviewDocumentRequest{Status: "EXPIRED", ExpiresAt: &past})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusExpired, expired.Status)

	report, err := f.dossierSvc.EvaluateCandidacy(context.Background(), candidacy.ID)
	require.NoError(t, err)
	assert.Contains(t, report.ExpiredMandatory, models.DocumentKindSignedQuote)
	assert.False(t, report.Compliant)
}

func TestDocumentServiceReviewNotFound(t *testing.T) {
	f := newAdmissionsFixture(t)

	_, _, err := f.documentSvc.Review(context.Background(), "missing", dto.ReviewDocumentRequest{Status: "VALID"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
