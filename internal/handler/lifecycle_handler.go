package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/pkg/response"
)

type lifecycleService interface {
	Current(ctx context.Context, personID string) (*models.LifecycleTransition, error)
	Resync(ctx context.Context, personID string) (*models.LifecycleTransition, error)
	Summary(ctx context.Context) (*models.LifecycleSummary, error)
}

// LifecycleHandler exposes lifecycle stage endpoints.
type LifecycleHandler struct {
	lifecycle lifecycleService
}

// NewLifecycleHandler constructs LifecycleHandler.
func NewLifecycleHandler(lifecycle lifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle}
}

// Current godoc
// @Summary Stored and derived lifecycle stage of a person
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /persons/{id}/lifecycle [get]
func (h *LifecycleHandler) Current(c *gin.Context) {
	transition, err := h.lifecycle.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PersonLifecycleResponse{
		PersonID: transition.PersonID,
		Stored:   transition.Previous,
		Derived:  transition.Current,
		InSync:   !transition.Changed,
	}, nil)
}

// Resync godoc
// @Summary Recompute and persist the lifecycle stage of a person
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /persons/{id}/lifecycle/resync [post]
func (h *LifecycleHandler) Resync(c *gin.Context) {
	transition, err := h.lifecycle.Resync(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resyncResponse(transition), nil)
}

// Summary godoc
// @Summary Distribution of active persons per lifecycle stage
// @Tags Lifecycle
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lifecycle/summary [get]
func (h *LifecycleHandler) Summary(c *gin.Context) {
	summary, err := h.lifecycle.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
