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

type documentService interface {
	ListByCandidacy(ctx context.Context, candidacyID string) ([]models.Document, error)
	Submit(ctx context.Context, candidacyID string, req dto.SubmitDocumentRequest) (*models.Document, *models.LifecycleTransition, error)
	Review(ctx context.Context, documentID string, req dto.ReviewDocumentRequest) (*models.Document, *models.LifecycleTransition, error)
}

// DocumentHandler exposes dossier document endpoints.
type DocumentHandler struct {
	documents documentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents documentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List godoc
// @Summary Documents of a candidacy
// @Tags Documents
// @Produce json
// @Param id path string true "Candidacy ID"
// @Success 200 {object} response.Envelope
// @Router /candidacies/{id}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.ListByCandidacy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Submit godoc
// @Summary Attach a received file
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Candidacy ID"
// @Param payload body dto.SubmitDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Router /candidacies/{id}/documents [post]
func (h *DocumentHandler) Submit(c *gin.Context) {
	var req dto.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, transition, err := h.documents.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, doc, nil, lifecycleMeta(transition))
}

// Review godoc
// @Summary Record a review decision
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/review [patch]
func (h *DocumentHandler) Review(c *gin.Context) {
	var req dto.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, transition, err := h.documents.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil, lifecycleMeta(transition))
}
