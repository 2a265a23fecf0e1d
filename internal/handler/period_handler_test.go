package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/internal/service"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

type periodServiceMock struct {
	setResp    *models.EnrollmentPeriod
	setErr     error
	statusResp *models.PeriodStatus
	statusErr  error
	lastSet    service.SetPeriodRequest
}

func (m *periodServiceMock) SetPeriod(ctx context.Context, req service.SetPeriodRequest) (*models.EnrollmentPeriod, error) {
	m.lastSet = req
	return m.setResp, m.setErr
}

func (m *periodServiceMock) Status(ctx context.Context, year, term int) (*models.PeriodStatus, error) {
	return m.statusResp, m.statusErr
}

func TestPeriodHandlerSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &periodServiceMock{setResp: &models.EnrollmentPeriod{ID: "per-1", Year: 2026, Term: 1}}
	handler := NewPeriodHandler(mockSvc)

	payload, _ := json.Marshal(service.SetPeriodRequest{
		Year:     2026,
		Term:     1,
		StartsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/periods", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Set(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2026, mockSvc.lastSet.Year)
}

func TestPeriodHandlerSetValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &periodServiceMock{setErr: appErrors.Clone(appErrors.ErrValidation, "starts_at must be before ends_at")}
	handler := NewPeriodHandler(mockSvc)

	payload, _ := json.Marshal(service.SetPeriodRequest{Year: 2026, Term: 1})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/periods", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Set(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "starts_at must be before ends_at")
}

func TestPeriodHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &periodServiceMock{statusResp: &models.PeriodStatus{Year: 2026, Term: 1, Open: true}}
	handler := NewPeriodHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/periods/2026/1/status", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "year", Value: "2026"}, {Key: "term", Value: "1"}}

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open":true`)
}

func TestPeriodHandlerStatusBadYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPeriodHandler(&periodServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/periods/abc/1/status", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "year", Value: "abc"}, {Key: "term", Value: "1"}}

	handler.Status(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
