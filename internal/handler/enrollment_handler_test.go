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

type fakeEnrollmentSrv struct {
	enrollment *models.Enrollment
	err        error
	lastCreate dto.CreateEnrollmentRequest
	lastStatus dto.UpdateEnrollmentStatusRequest
}

func (f *fakeEnrollmentSrv) Get(context.Context, string) (*models.Enrollment, error) {
	return f.enrollment, f.err
}

func (f *fakeEnrollmentSrv) Create(_ context.Context, req dto.CreateEnrollmentRequest) (*models.Enrollment, *models.LifecycleTransition, error) {
	f.lastCreate = req
	return f.enrollment, &models.LifecycleTransition{Current: models.LifecycleStageStudent, Changed: true}, f.err
}

func (f *fakeEnrollmentSrv) UpdateStatus(_ context.Context, _ string, req dto.UpdateEnrollmentStatusRequest) (*models.Enrollment, *models.LifecycleTransition, error) {
	f.lastStatus = req
	return f.enrollment, nil, f.err
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{enrollment: &models.Enrollment{ID: "e1"}}
	handler := NewEnrollmentHandler(srv)

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"candidacyId":"c1","startDate":"2025-09-01T00:00:00Z"}`))
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c1", srv.lastCreate.CandidacyID)
	require.NotNil(t, srv.lastCreate.StartDate)
	assert.Equal(t, 2025, srv.lastCreate.StartDate.Year())
}

func TestEnrollmentHandlerCreatePrecondition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&fakeEnrollmentSrv{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "candidacy is INTERVIEW")})

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"candidacyId":"c1"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestEnrollmentHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentStatusCompleted}}
	handler := NewEnrollmentHandler(srv)

	c, w := newGinContext(http.MethodPatch, "/enrollments/e1/status", []byte(`{"status":"COMPLETED"}`))
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", srv.lastStatus.Status)

	c, w = newGinContext(http.MethodPatch, "/enrollments/e1/status", []byte(`not json`))
	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
