package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/internal/service"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
	"github.com/nmunozf/electivos-api/pkg/response"
)

type electiveService interface {
	List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ElectiveDetail, error)
	Propose(ctx context.Context, req service.ProposeElectiveRequest) (*models.ElectiveDetail, error)
	Review(ctx context.Context, id string, req service.ReviewElectiveRequest) (*models.Elective, error)
	Roster(ctx context.Context, electiveID string) ([]models.RosterEntry, error)
	ExportRoster(ctx context.Context, electiveID, format string) (*service.RosterExport, error)
}

// ElectiveHandler exposes elective catalog endpoints.
type ElectiveHandler struct {
	electives electiveService
}

// NewElectiveHandler constructs ElectiveHandler.
func NewElectiveHandler(electives electiveService) *ElectiveHandler {
	return &ElectiveHandler{electives: electives}
}

// List godoc
// @Summary List electives
// @Tags Electives
// @Produce json
// @Param status query string false "Filter by status"
// @Param year query int false "Filter by year"
// @Param term query int false "Filter by term"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /electives [get]
func (h *ElectiveHandler) List(c *gin.Context) {
	var filter models.ElectiveFilter
	filter.Status = models.ElectiveStatus(strings.ToUpper(c.Query("status")))
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if term, err := strconv.Atoi(c.Query("term")); err == nil {
		filter.Term = term
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	electives, pagination, err := h.electives.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, electives, pagination)
}

// Get godoc
// @Summary Get an elective with its program quotas
// @Tags Electives
// @Produce json
// @Param id path string true "Elective ID"
// @Success 200 {object} response.Envelope
// @Router /electives/{id} [get]
func (h *ElectiveHandler) Get(c *gin.Context) {
	elective, err := h.electives.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, elective, nil)
}

// Propose godoc
// @Summary Propose an elective with per-program seat quotas
// @Tags Electives
// @Accept json
// @Produce json
// @Param payload body service.ProposeElectiveRequest true "Elective payload"
// @Success 201 {object} response.Envelope
// @Router /electives [post]
func (h *ElectiveHandler) Propose(c *gin.Context) {
	var req service.ProposeElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleProfessor {
		req.ProfessorID = claims.UserID
	}
	elective, err := h.electives.Propose(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, elective)
}

// Review godoc
// @Summary Approve or reject a proposed elective
// @Tags Electives
// @Accept json
// @Produce json
// @Param id path string true "Elective ID"
// @Param payload body service.ReviewElectiveRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /electives/{id}/review [post]
func (h *ElectiveHandler) Review(c *gin.Context) {
	var req service.ReviewElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	elective, err := h.electives.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, elective, nil)
}

// Roster godoc
// @Summary Final roster for an elective, optionally exported
// @Tags Electives
// @Produce json
// @Param id path string true "Elective ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Router /electives/{id}/roster [get]
func (h *ElectiveHandler) Roster(c *gin.Context) {
	id := c.Param("id")
	format := c.Query("format")
	if format == "" {
		entries, err := h.electives.Roster(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entries, nil)
		return
	}

	doc, err := h.electives.ExportRoster(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
