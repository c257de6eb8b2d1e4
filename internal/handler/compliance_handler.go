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

type complianceExportService interface {
	Generate(ctx context.Context, req dto.ComplianceExportRequest) (*models.ComplianceExport, error)
	Download(ctx context.Context, token string) ([]byte, string, string, error)
}

// ComplianceHandler exposes compliance audit exports.
type ComplianceHandler struct {
	exports complianceExportService
}

// NewComplianceHandler constructs ComplianceHandler.
func NewComplianceHandler(exports complianceExportService) *ComplianceHandler {
	return &ComplianceHandler{exports: exports}
}

// Generate godoc
// @Summary Render a compliance audit export
// @Tags Compliance
// @Accept json
// @Produce json
// @Param payload body dto.ComplianceExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /compliance/exports [post]
func (h *ComplianceHandler) Generate(c *gin.Context) {
	var req dto.ComplianceExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a compliance audit export
// @Tags Compliance
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /compliance/exports/{token} [get]
func (h *ComplianceHandler) Download(c *gin.Context) {
	payload, contentType, filename, err := h.exports.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, contentType, filename, payload)
}
