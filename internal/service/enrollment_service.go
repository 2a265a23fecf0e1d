package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmunozf/electivos-api/internal/models"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, request *models.EnrollmentRequest) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, reason *string) error
	ApproveConsumingSeat(ctx context.Context, requestID, quotaID string) (bool, error)
}

type quotaReader interface {
	FindByElectiveAndProgram(ctx context.Context, electiveID, program string) (*models.ProgramQuota, error)
}

type electiveReader interface {
	FindByID(ctx context.Context, id string) (*models.Elective, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type periodGate interface {
	IsOpen(ctx context.Context, year, term int, at time.Time) (bool, error)
}

// SubmitRequest describes a student's ranked enrollment submission.
type SubmitRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ElectiveID string `json:"elective_id" validate:"required"`
	Priority   int    `json:"priority" validate:"required,min=1,max=3"`
}

// RejectRequest carries the optional rejection reason.
type RejectRequest struct {
	Reason *string `json:"reason"`
}

// EnrollmentService adjudicates enrollment requests: it validates
// submissions against the period window and quota ledger and owns the
// request status transitions.
//
// A student's lower-numbered priorities are not forced to resolve
// first here; that ordering is a reviewing-workflow convention, not a
// stored invariant.
type EnrollmentService struct {
	requests  requestRepository
	quotas    quotaReader
	electives electiveReader
	students  studentReader
	periods   periodGate
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(requests requestRepository, quotas quotaReader, electives electiveReader, students studentReader, periods periodGate, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		requests:  requests,
		quotas:    quotas,
		electives: electives,
		students:  students,
		periods:   periods,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns enrollment requests with pagination metadata, ordered
// by priority then submission time.
func (s *EnrollmentService) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error) {
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return requests, pagination, nil
}

// Submit registers a ranked enrollment request for a student.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitRequest) (*models.RequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment request payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Program == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no declared program")
	}

	elective, err := s.electives.FindByID(ctx, req.ElectiveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}
	if elective.Status != models.ElectiveStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "elective is not open for enrollment")
	}

	open, err := s.periods.IsOpen(ctx, elective.Year, elective.Term, s.now())
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, appErrors.Clone(appErrors.ErrPeriodClosed, "")
	}

	if _, err := s.quotas.FindByElectiveAndProgram(ctx, req.ElectiveID, student.Program); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "program not offered this elective")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quota")
	}

	request := &models.EnrollmentRequest{
		StudentID:  req.StudentID,
		ElectiveID: req.ElectiveID,
		Priority:   req.Priority,
		Status:     models.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate enrollment or priority already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.metrics.RecordSubmission()
	s.logger.Info("enrollment request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", request.StudentID),
		zap.String("elective_id", request.ElectiveID),
		zap.Int("priority", request.Priority),
	)

	detail, err := s.requests.FindDetailByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// Approve grants a pending request a seat. Approving an already
// approved request is a no-op; the seat is consumed exactly once. The
// seat reservation and the status write commit together, so a consumed
// seat can never strand on a request that did not reach APPROVED.
func (s *EnrollmentService) Approve(ctx context.Context, id string) (*models.RequestDetail, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	if request.Status == models.RequestStatusApproved {
		return s.detail(ctx, id)
	}

	student, err := s.students.FindByID(ctx, request.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	quota, err := s.quotas.FindByElectiveAndProgram(ctx, request.ElectiveID, student.Program)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no quota declared for the student's program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quota")
	}

	// Fast, clear error when the ledger is already empty. The real
	// concurrency guard is the conditional update below.
	if quota.RemainingSeats == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSeats, "")
	}

	reserved, err := s.requests.ApproveConsumingSeat(ctx, request.ID, quota.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}
	if !reserved {
		s.metrics.RecordSeatConflict()
		return nil, appErrors.Clone(appErrors.ErrValidation, "could not reserve a seat")
	}

	s.metrics.RecordAdjudication(true)
	s.logger.Info("enrollment request approved",
		zap.String("request_id", request.ID),
		zap.String("quota_id", quota.ID),
	)
	return s.detail(ctx, id)
}

// Reject marks a request REJECTED and stores the optional reason. No
// seat is released: approval is the only path that consumes one.
func (s *EnrollmentService) Reject(ctx context.Context, id string, req RejectRequest) (*models.RequestDetail, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requests.UpdateStatus(ctx, id, models.RequestStatusRejected, req.Reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}
	s.metrics.RecordAdjudication(false)
	return s.detail(ctx, id)
}

// RevertToPending is an administrative override. Reverting a
// previously approved request does not credit the seat back; the
// ledger only moves down through this service and corrections are a
// manual operation.
func (s *EnrollmentService) RevertToPending(ctx context.Context, id string) (*models.RequestDetail, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requests.UpdateStatus(ctx, id, models.RequestStatusPending, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert request")
	}
	return s.detail(ctx, id)
}

func (s *EnrollmentService) load(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *EnrollmentService) detail(ctx context.Context, id string) (*models.RequestDetail, error) {
	detail, err := s.requests.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}
