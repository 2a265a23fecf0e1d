package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/pkg/config"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

// First-term periods must close before the second term begins; the
// registrar's calendar fixes that boundary at August 2.
const (
	termOneClosingMonth = time.August
	termOneClosingDay   = 2

	defaultMaxPeriodDays = 60
)

type periodRepository interface {
	Upsert(ctx context.Context, period *models.EnrollmentPeriod) error
	FindByYearTerm(ctx context.Context, year, term int) (*models.EnrollmentPeriod, error)
}

// SetPeriodRequest describes the payload for configuring a window.
type SetPeriodRequest struct {
	Year     int       `json:"year" validate:"required,min=2000"`
	Term     int       `json:"term" validate:"required,oneof=1 2"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
}

// PeriodService owns the enrollment window state machine.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
	maxDays   int
	now       func() time.Time
}

// NewPeriodService constructs PeriodService.
func NewPeriodService(repo periodRepository, cfg config.EnrollmentConfig, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDays := cfg.MaxPeriodDays
	if maxDays <= 0 {
		maxDays = defaultMaxPeriodDays
	}
	return &PeriodService{repo: repo, validator: validate, logger: logger, maxDays: maxDays, now: time.Now}
}

// SetPeriod validates and upserts the window for (year, term).
func (s *PeriodService) SetPeriod(ctx context.Context, req SetPeriodRequest) (*models.EnrollmentPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	if !req.StartsAt.Before(req.EndsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "starts_at must be before ends_at")
	}
	if req.EndsAt.Before(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must not be in the past")
	}
	if req.EndsAt.Sub(req.StartsAt) > time.Duration(s.maxDays)*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period exceeds the maximum duration")
	}
	if req.Term == models.TermFirst {
		limit := time.Date(req.Year, termOneClosingMonth, termOneClosingDay+1, 0, 0, 0, 0, time.UTC)
		if !req.EndsAt.Before(limit) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "first-term periods must end by August 2")
		}
	}

	period := &models.EnrollmentPeriod{
		Year:     req.Year,
		Term:     req.Term,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt.UTC(),
	}
	if err := s.repo.Upsert(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store period")
	}
	s.logger.Info("enrollment period set",
		zap.Int("year", period.Year),
		zap.Int("term", period.Term),
		zap.Time("starts_at", period.StartsAt),
		zap.Time("ends_at", period.EndsAt),
	)
	return period, nil
}

// IsOpen reports whether submissions are accepted for (year, term) at
// the given instant. A missing period means enrollment is closed.
func (s *PeriodService) IsOpen(ctx context.Context, year, term int, at time.Time) (bool, error) {
	period, err := s.repo.FindByYearTerm(ctx, year, term)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return !at.Before(period.StartsAt) && !at.After(period.EndsAt), nil
}

// IsFinished reports whether the window for (year, term) has ended. A
// missing period is not finished; there is no history to close.
func (s *PeriodService) IsFinished(ctx context.Context, year, term int, at time.Time) (bool, error) {
	period, err := s.repo.FindByYearTerm(ctx, year, term)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return at.After(period.EndsAt), nil
}

// Status resolves both window queries at the current instant.
func (s *PeriodService) Status(ctx context.Context, year, term int) (*models.PeriodStatus, error) {
	now := s.now()
	open, err := s.IsOpen(ctx, year, term, now)
	if err != nil {
		return nil, err
	}
	finished, err := s.IsFinished(ctx, year, term, now)
	if err != nil {
		return nil, err
	}
	return &models.PeriodStatus{Year: year, Term: term, Open: open, Finished: finished}, nil
}
