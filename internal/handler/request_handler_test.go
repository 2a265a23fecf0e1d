package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmunozf/electivos-api/internal/middleware"
	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/internal/service"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

type enrollmentServiceMock struct {
	listResp      []models.RequestDetail
	listErr       error
	submitResp    *models.RequestDetail
	submitErr     error
	approveResp   *models.RequestDetail
	approveErr    error
	rejectResp    *models.RequestDetail
	rejectErr     error
	revertResp    *models.RequestDetail
	revertErr     error
	lastSubmit    service.SubmitRequest
	lastReject    service.RejectRequest
	lastFilter    models.RequestFilter
	approveCalled bool
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *enrollmentServiceMock) Submit(ctx context.Context, req service.SubmitRequest) (*models.RequestDetail, error) {
	m.lastSubmit = req
	return m.submitResp, m.submitErr
}

func (m *enrollmentServiceMock) Approve(ctx context.Context, id string) (*models.RequestDetail, error) {
	m.approveCalled = true
	return m.approveResp, m.approveErr
}

func (m *enrollmentServiceMock) Reject(ctx context.Context, id string, req service.RejectRequest) (*models.RequestDetail, error) {
	m.lastReject = req
	return m.rejectResp, m.rejectErr
}

func (m *enrollmentServiceMock) RevertToPending(ctx context.Context, id string) (*models.RequestDetail, error) {
	return m.revertResp, m.revertErr
}

func requestDetail(status models.RequestStatus) *models.RequestDetail {
	return &models.RequestDetail{
		EnrollmentRequest: models.EnrollmentRequest{ID: "req-1", StudentID: "stu-1", ElectiveID: "ele-1", Priority: 1, Status: status},
		StudentName:       "Ana Rojas",
		Program:           "ICI",
		ElectiveName:      "Robotics",
	}
}

func TestRequestHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{submitResp: requestDetail(models.RequestStatusPending)}
	handler := NewRequestHandler(mockSvc)

	payload, _ := json.Marshal(service.SubmitRequest{StudentID: "ignored", ElectiveID: "ele-1", Priority: 1})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	// Students always submit on their own behalf.
	assert.Equal(t, "stu-1", mockSvc.lastSubmit.StudentID)
}

func TestRequestHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString(`{"priority":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerSubmitClosedPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{submitErr: appErrors.ErrPeriodClosed}
	handler := NewRequestHandler(mockSvc)

	payload, _ := json.Marshal(service.SubmitRequest{StudentID: "stu-1", ElectiveID: "ele-1", Priority: 1})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PERIOD_CLOSED")
}

func TestRequestHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{listResp: []models.RequestDetail{*requestDetail(models.RequestStatusPending)}}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/requests?status=pending&electiveId=ele-1", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RequestStatusPending, mockSvc.lastFilter.Status)
	assert.Equal(t, "ele-1", mockSvc.lastFilter.ElectiveID)
}

func TestRequestHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{approveResp: requestDetail(models.RequestStatusApproved)}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests/req-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.approveCalled)
}

func TestRequestHandlerApproveNoSeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{approveErr: appErrors.ErrNoSeats}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests/req-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_SEATS")
}

func TestRequestHandlerRejectWithReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{rejectResp: requestDetail(models.RequestStatusRejected)}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests/req-1/reject", bytes.NewBufferString(`{"reason":"seniors first"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastReject.Reason)
	assert.Equal(t, "seniors first", *mockSvc.lastReject.Reason)
}

func TestRequestHandlerRevertNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{revertErr: appErrors.ErrNotFound}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests/missing/revert", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Revert(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
