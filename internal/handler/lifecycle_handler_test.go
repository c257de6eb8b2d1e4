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

type fakeLifecycleSrv struct {
	transition *models.LifecycleTransition
	summary    *models.LifecycleSummary
	err        error
}

func (f *fakeLifecycleSrv) Current(context.Context, string) (*models.LifecycleTransition, error) {
	return f.transition, f.err
}

func (f *fakeLifecycleSrv) Resync(context.Context, string) (*models.LifecycleTransition, error) {
	return f.transition, f.err
}

func (f *fakeLifecycleSrv) Summary(context.Context) (*models.LifecycleSummary, error) {
	return f.summary, f.err
}

func TestLifecycleHandlerCurrentReportsDrift(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLifecycleHandler(&fakeLifecycleSrv{transition: &models.LifecycleTransition{
		PersonID: "p1",
		Previous: models.LifecycleStageNew,
		Current:  models.LifecycleStageCandidate,
		Changed:  true,
	}})

	c, w := newGinContext(http.MethodGet, "/persons/p1/lifecycle", nil)
	handler.Current(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body dto.PersonLifecycleResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &body))
	assert.Equal(t, dto.PersonLifecycleResponse{PersonID: "p1", Stored: models.LifecycleStageNew, Derived: models.LifecycleStageCandidate, InSync: false}, body)
}

func TestLifecycleHandlerResyncErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    *appErrors.Error
		status int
	}{
		{appErrors.ErrLifecycleConflict, http.StatusConflict},
		{appErrors.ErrLifecycleInconsistent, http.StatusUnprocessableEntity},
		{appErrors.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		handler := NewLifecycleHandler(&fakeLifecycleSrv{err: tc.err})
		c, w := newGinContext(http.MethodPost, "/persons/p1/lifecycle/resync", nil)
		handler.Resync(c)
		assert.Equal(t, tc.status, w.Code, tc.err.Code)
		assert.Equal(t, tc.err.Code, decodeEnvelope(t, w).Error.Code)
	}
}

func TestLifecycleHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLifecycleHandler(&fakeLifecycleSrv{summary: &models.LifecycleSummary{
		Total:  3,
		Stages: []models.LifecycleStageCount{{Stage: models.LifecycleStageStudent, Count: 3}},
	}})

	c, w := newGinContext(http.MethodGet, "/lifecycle/summary", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var summary models.LifecycleSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &summary))
	assert.Equal(t, 3, summary.Total)
}
