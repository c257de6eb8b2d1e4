package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
	"github.com/noah-isme/sma-crm-api/pkg/response"
)

type candidacyService interface {
	Get(ctx context.Context, id string) (*models.Candidacy, error)
	Create(ctx context.Context, req dto.CreateCandidacyRequest) (*models.Candidacy, *models.LifecycleTransition, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateCandidacyStatusRequest) (*models.Candidacy, *models.LifecycleTransition, error)
	UpdateFinancing(ctx context.Context, id string, req dto.UpdateFinancingRequest) (*models.Candidacy, error)
}

// CandidacyHandler exposes candidacy workflow endpoints.
type CandidacyHandler struct {
	candidacies candidacyService
}

// NewCandidacyHandler constructs CandidacyHandler.
func NewCandidacyHandler(candidacies candidacyService) *CandidacyHandler {
	return &CandidacyHandler{candidacies: candidacies}
}

// Create godoc
// @Summary Open a candidacy
// @Description Seeds an AWAITED document placeholder for every requirement of the program tier.
// @Tags Candidacies
// @Accept json
// @Produce json
// @Param payload body dto.CreateCandidacyRequest true "Candidacy payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /candidacies [post]
func (h *CandidacyHandler) Create(c *gin.Context) {
	var req dto.CreateCandidacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	candidacy, transition, err := h.candidacies.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, candidacy, nil, lifecycleMeta(transition))
}

// Get godoc
// @Summary Get candidacy detail
// @Tags Candidacies
// @Produce json
// @Param id path string true "Candidacy ID"
// @Success 200 {object} response.Envelope
// @Router /candidacies/{id} [get]
func (h *CandidacyHandler) Get(c *gin.Context) {
	candidacy, err := h.candidacies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidacy, nil)
}

// UpdateStatus godoc
// @Summary Move a candidacy along its workflow
// @Tags Candidacies
// @Accept json
// @Produce json
// @Param id path string true "Candidacy ID"
// @Param payload body dto.UpdateCandidacyStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /candidacies/{id}/status [patch]
func (h *CandidacyHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateCandidacyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	candidacy, transition, err := h.candidacies.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidacy, nil, lifecycleMeta(transition))
}

// UpdateFinancing godoc
// @Summary Record quote and financing amounts
// @Tags Candidacies
// @Accept json
// @Produce json
// @Param id path string true "Candidacy ID"
// @Param payload body dto.UpdateFinancingRequest true "Amounts in cents"
// @Success 200 {object} response.Envelope
// @Router /candidacies/{id}/financing [patch]
func (h *CandidacyHandler) UpdateFinancing(c *gin.Context) {
	var req dto.UpdateFinancingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	candidacy, err := h.candidacies.UpdateFinancing(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidacy, nil)
}
