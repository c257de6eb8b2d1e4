package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/pkg/response"
)

type dossierService interface {
	EvaluateCandidacy(ctx context.Context, candidacyID string) (*models.DossierReport, error)
	EvaluateEnrollment(ctx context.Context, enrollmentID string) (*models.DossierReport, error)
}

type requirementCatalog interface {
	Resolve(tier models.ProgramTier) models.ProgramTier
	RequirementsFor(tier models.ProgramTier) []models.Requirement
}

// DossierHandler exposes compliance evaluation and the requirement catalog.
type DossierHandler struct {
	dossiers dossierService
	catalog  requirementCatalog
}

// NewDossierHandler constructs DossierHandler.
func NewDossierHandler(dossiers dossierService, catalog requirementCatalog) *DossierHandler {
	return &DossierHandler{dossiers: dossiers, catalog: catalog}
}

// Candidacy godoc
// @Summary Dossier compliance of a candidacy
// @Tags Dossiers
// @Produce json
// @Param id path string true "Candidacy ID"
// @Success 200 {object} response.Envelope
// @Router /candidacies/{id}/dossier [get]
func (h *DossierHandler) Candidacy(c *gin.Context) {
	report, err := h.dossiers.EvaluateCandidacy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Enrollment godoc
// @Summary Dossier compliance of an enrollment
// @Tags Dossiers
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/dossier [get]
func (h *DossierHandler) Enrollment(c *gin.Context) {
	report, err := h.dossiers.EvaluateEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Requirements godoc
// @Summary Document requirements of a program tier
// @Description Unknown tiers resolve to the configured fallback tier, reported in meta.
// @Tags Dossiers
// @Produce json
// @Param tier path string true "Program tier"
// @Success 200 {object} response.Envelope
// @Router /requirements/{tier} [get]
func (h *DossierHandler) Requirements(c *gin.Context) {
	tier := models.NormalizeProgramTier(c.Param("tier"))
	requirements := h.catalog.RequirementsFor(tier)
	response.JSON(c, http.StatusOK, requirements, nil, map[string]interface{}{
		"requestedTier": tier,
		"resolvedTier":  h.catalog.Resolve(tier),
	})
}
