package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type fakeDocumentSrv struct {
	docs       []models.Document
	doc        *models.Document
	err        error
	lastSubmit dto.SubmitDocumentRequest
	lastReview dto.ReviewDocumentRequest
}

func (f *fakeDocumentSrv) ListByCandidacy(context.Context, string) ([]models.Document, error) {
	return f.docs, f.err
}

func (f *fakeDocumentSrv) Submit(_ context.Context, _ string, req dto.SubmitDocumentRequest) (*models.Document, *models.LifecycleTransition, error) {
	f.lastSubmit = req
	return f.doc, nil, f.err
}

func (f *fakeDocumentSrv) Review(_ context.Context, _ string, req dto.ReviewDocumentRequest) (*models.Document, *models.LifecycleTransition, error) {
	f.lastReview = req
	return f.doc, &models.LifecycleTransition{PersonID: "p1"}, f.err
}

func TestDocumentHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDocumentSrv{doc: &models.Document{ID: "d1", Status: models.DocumentStatusReceived}}
	handler := NewDocumentHandler(srv)

	c, w := newGinContext(http.MethodPost, "/candidacies/c1/documents", []byte(`{"kind":"ID_FRONT","fileRef":"uploads/id.png"}`))
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ID_FRONT", srv.lastSubmit.Kind)
	assert.Nil(t, decodeEnvelope(t, w).Meta)
}

func TestDocumentHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDocumentSrv{doc: &models.Document{ID: "d1", Status: models.DocumentStatusExempted}}
	handler := NewDocumentHandler(srv)

	c, w := newGinContext(http.MethodPatch, "/documents/d1/review", []byte(`{"status":"EXEMPTED","justification":"employer policy"}`))
	handler.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, srv.lastReview.Justification)
	assert.Equal(t, "employer policy", *srv.lastReview.Justification)
	assert.Contains(t, decodeEnvelope(t, w).Meta, "lifecycle")
}

func TestDocumentHandlerListError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&fakeDocumentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "candidacy not found")})

	c, w := newGinContext(http.MethodGet, "/candidacies/c404/documents", nil)
	handler.List(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
