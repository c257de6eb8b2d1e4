package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type fakeCandidacySrv struct {
	candidacy     *models.Candidacy
	transition    *models.LifecycleTransition
	err           error
	lastID        string
	lastStatus    dto.UpdateCandidacyStatusRequest
	lastFinancing dto.UpdateFinancingRequest
}

func (f *fakeCandidacySrv) Get(_ context.Context, id string) (*models.Candidacy, error) {
	f.lastID = id
	return f.candidacy, f.err
}

func (f *fakeCandidacySrv) Create(context.Context, dto.CreateCandidacyRequest) (*models.Candidacy, *models.LifecycleTransition, error) {
	return f.candidacy, f.transition, f.err
}

func (f *fakeCandidacySrv) UpdateStatus(_ context.Context, id string, req dto.UpdateCandidacyStatusRequest) (*models.Candidacy, *models.LifecycleTransition, error) {
	f.lastID = id
	f.lastStatus = req
	return f.candidacy, f.transition, f.err
}

func (f *fakeCandidacySrv) UpdateFinancing(_ context.Context, id string, req dto.UpdateFinancingRequest) (*models.Candidacy, error) {
	f.lastID = id
	f.lastFinancing = req
	return f.candidacy, f.err
}

func TestCandidacyHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCandidacyHandler(&fakeCandidacySrv{
		candidacy:  &models.Candidacy{ID: "c1", Status: models.CandidacyStatusReceived},
		transition: &models.LifecycleTransition{PersonID: "p1", Current: models.LifecycleStageCandidate, Changed: true},
	})

	payload, _ := json.Marshal(dto.CreateCandidacyRequest{PersonID: "p1", ProgramTier: "SHORT_COURSE", ProgramName: "Welding"})
	c, w := newGinContext(http.MethodPost, "/candidacies", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, env.Meta, "lifecycle")
}

func TestCandidacyHandlerUpdateStatusDossierGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCandidacySrv{err: appErrors.Clone(appErrors.ErrDossierIncomplete, "dossier is not compliant, unmet mandatory documents: ID_FRONT")}
	handler := NewCandidacyHandler(srv)

	c, w := newGinContext(http.MethodPatch, "/candidacies/c1/status", []byte(`{"status":"ACCEPTED"}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "c1", srv.lastID)
	assert.Equal(t, "ACCEPTED", srv.lastStatus.Status)
	assert.Contains(t, decodeEnvelope(t, w).Error.Message, "ID_FRONT")
}

func TestCandidacyHandlerUpdateFinancing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCandidacySrv{candidacy: &models.Candidacy{ID: "c1"}}
	handler := NewCandidacyHandler(srv)

	c, w := newGinContext(http.MethodPatch, "/candidacies/c1/financing", []byte(`{"quoteAmountCents":120000,"financer":"Regional fund"}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.UpdateFinancing(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, srv.lastFinancing.QuoteAmountCents)
	assert.Equal(t, int64(120000), *srv.lastFinancing.QuoteAmountCents)
	assert.Nil(t, srv.lastFinancing.FinancedAmountCents)
}

func TestCandidacyHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCandidacyHandler(&fakeCandidacySrv{candidacy: &models.Candidacy{ID: "c1"}})

	c, w := newGinContext(http.MethodGet, "/candidacies/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
