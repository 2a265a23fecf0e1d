package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/internal/service"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
	"github.com/nmunozf/electivos-api/pkg/response"
)

type periodService interface {
	SetPeriod(ctx context.Context, req service.SetPeriodRequest) (*models.EnrollmentPeriod, error)
	Status(ctx context.Context, year, term int) (*models.PeriodStatus, error)
}

// PeriodHandler exposes enrollment period endpoints.
type PeriodHandler struct {
	periods periodService
}

// NewPeriodHandler constructs PeriodHandler.
func NewPeriodHandler(periods periodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// Set godoc
// @Summary Configure the enrollment window for a (year, term)
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body service.SetPeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /periods [put]
func (h *PeriodHandler) Set(c *gin.Context) {
	var req service.SetPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.periods.SetPeriod(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Status godoc
// @Summary Report whether the window is open or finished
// @Tags Periods
// @Produce json
// @Param year path int true "Year"
// @Param term path int true "Term"
// @Success 200 {object} response.Envelope
// @Router /periods/{year}/{term}/status [get]
func (h *PeriodHandler) Status(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
		return
	}
	term, err := strconv.Atoi(c.Param("term"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid term"))
		return
	}
	status, err := h.periods.Status(c.Request.Context(), year, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
