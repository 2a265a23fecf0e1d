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

type enrollmentService interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error)
	Submit(ctx context.Context, req service.SubmitRequest) (*models.RequestDetail, error)
	Approve(ctx context.Context, id string) (*models.RequestDetail, error)
	Reject(ctx context.Context, id string, req service.RejectRequest) (*models.RequestDetail, error)
	RevertToPending(ctx context.Context, id string) (*models.RequestDetail, error)
}

// RequestHandler exposes enrollment request endpoints.
type RequestHandler struct {
	enrollments enrollmentService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(enrollments enrollmentService) *RequestHandler {
	return &RequestHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollment requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param electiveId query string false "Filter by elective"
// @Param studentId query string false "Filter by student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var filter models.RequestFilter
	filter.Status = models.RequestStatus(strings.ToUpper(c.Query("status")))
	filter.ElectiveID = c.Query("electiveId")
	filter.StudentID = c.Query("studentId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	requests, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Submit godoc
// @Summary Submit a ranked enrollment request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequest true "Enrollment request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}
	request, err := h.enrollments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Approve godoc
// @Summary Approve a request, consuming one program seat
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	request, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a request with an optional reason
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.RejectRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	var req service.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	request, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Revert godoc
// @Summary Revert a request to PENDING
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/revert [post]
func (h *RequestHandler) Revert(c *gin.Context) {
	request, err := h.enrollments.RevertToPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
