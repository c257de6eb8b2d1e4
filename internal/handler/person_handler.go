package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
	"github.com/noah-isme/sma-crm-api/pkg/response"
)

type personService interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	Create(ctx context.Context, req dto.CreatePersonRequest) (*models.Person, error)
	MarkDossierSent(ctx context.Context, id string, req dto.MarkDossierSentRequest) (*models.Person, *models.LifecycleTransition, error)
	Archive(ctx context.Context, id string) error
}

type candidacyHistory interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Candidacy, error)
}

// PersonHandler exposes person endpoints.
type PersonHandler struct {
	persons     personService
	candidacies candidacyHistory
}

// NewPersonHandler constructs PersonHandler.
func NewPersonHandler(persons personService, candidacies candidacyHistory) *PersonHandler {
	return &PersonHandler{persons: persons, candidacies: candidacies}
}

// List godoc
// @Summary List persons
// @Tags Persons
// @Produce json
// @Param search query string false "Search by name or email"
// @Param stage query string false "Filter by lifecycle stage"
// @Param includeArchived query bool false "Include archived persons"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "created_at, last_name or stage"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /persons [get]
func (h *PersonHandler) List(c *gin.Context) {
	var filter models.PersonFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if stage := strings.TrimSpace(c.Query("stage")); stage != "" {
		filter.Stage = models.LifecycleStage(strings.ToUpper(stage))
	}
	filter.IncludeArchived = c.Query("includeArchived") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	persons, pagination, err := h.persons.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, persons, pagination)
}

// Get godoc
// @Summary Get person detail
// @Tags Persons
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /persons/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.persons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Create godoc
// @Summary Register a person
// @Tags Persons
// @Accept json
// @Produce json
// @Param payload body dto.CreatePersonRequest true "Person payload"
// @Success 201 {object} response.Envelope
// @Router /persons [post]
func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, err := h.persons.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// MarkDossierSent godoc
// @Summary Record intake form dispatch
// @Tags Persons
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param payload body dto.MarkDossierSentRequest false "Dispatch time, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/dossier-sent [post]
func (h *PersonHandler) MarkDossierSent(c *gin.Context) {
	var req dto.MarkDossierSentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, transition, err := h.persons.MarkDossierSent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil, lifecycleMeta(transition))
}

// Archive godoc
// @Summary Archive person
// @Tags Persons
// @Param id path string true "Person ID"
// @Success 204
// @Router /persons/{id} [delete]
func (h *PersonHandler) Archive(c *gin.Context) {
	if err := h.persons.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Candidacies godoc
// @Summary Candidacy history of a person
// @Tags Persons
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/candidacies [get]
func (h *PersonHandler) Candidacies(c *gin.Context) {
	candidacies, err := h.candidacies.ListByPerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidacies, nil)
}
