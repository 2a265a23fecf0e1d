package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmunozf/electivos-api/internal/models"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
	"github.com/nmunozf/electivos-api/pkg/export"
)

type electiveRepository interface {
	Create(ctx context.Context, elective *models.Elective, quotas []models.ProgramQuota) error
	FindByID(ctx context.Context, id string) (*models.Elective, error)
	List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ElectiveStatus) error
}

type quotaLister interface {
	ListByElective(ctx context.Context, electiveID string) ([]models.ProgramQuota, error)
}

type rosterReader interface {
	Roster(ctx context.Context, electiveID string) ([]models.RosterEntry, error)
}

type rosterGate interface {
	IsFinished(ctx context.Context, year, term int, at time.Time) (bool, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ProgramQuotaInput declares seats for one program on a proposal.
type ProgramQuotaInput struct {
	Program string `json:"program" validate:"required"`
	Seats   int    `json:"seats" validate:"required,min=1"`
}

// ProposeElectiveRequest describes a professor's elective proposal.
type ProposeElectiveRequest struct {
	Name        string              `json:"name" validate:"required"`
	Description string              `json:"description"`
	ProfessorID string              `json:"professor_id" validate:"required"`
	Year        int                 `json:"year" validate:"required,min=2000"`
	Term        int                 `json:"term" validate:"required,oneof=1 2"`
	Quotas      []ProgramQuotaInput `json:"quotas" validate:"required,min=1,dive"`
}

// ReviewElectiveRequest carries the department head's decision.
type ReviewElectiveRequest struct {
	Status models.ElectiveStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// RosterExport is a rendered roster document.
type RosterExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ElectiveService manages the elective catalog lifecycle and rosters.
type ElectiveService struct {
	repo      electiveRepository
	quotas    quotaLister
	roster    rosterReader
	periods   rosterGate
	cache     catalogCache
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewElectiveService constructs ElectiveService.
func NewElectiveService(repo electiveRepository, quotas quotaLister, roster rosterReader, periods rosterGate, cache catalogCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *ElectiveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ElectiveService{
		repo:      repo,
		quotas:    quotas,
		roster:    roster,
		periods:   periods,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// Propose creates a PENDING elective with one quota row per declared
// program. The quota rows carry the full seat count until approvals
// start consuming them.
func (s *ElectiveService) Propose(ctx context.Context, req ProposeElectiveRequest) (*models.ElectiveDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid elective payload")
	}

	seen := make(map[string]struct{}, len(req.Quotas))
	quotas := make([]models.ProgramQuota, 0, len(req.Quotas))
	for _, q := range req.Quotas {
		if _, dup := seen[q.Program]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("program %q declared more than once", q.Program))
		}
		seen[q.Program] = struct{}{}
		quotas = append(quotas, models.ProgramQuota{
			Program:        q.Program,
			TotalSeats:     q.Seats,
			RemainingSeats: q.Seats,
		})
	}

	elective := &models.Elective{
		Name:        req.Name,
		Description: req.Description,
		ProfessorID: req.ProfessorID,
		Year:        req.Year,
		Term:        req.Term,
		Status:      models.ElectiveStatusPending,
	}
	if err := s.repo.Create(ctx, elective, quotas); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create elective")
	}
	s.invalidateCache(ctx)

	s.logger.Info("elective proposed",
		zap.String("elective_id", elective.ID),
		zap.String("professor_id", elective.ProfessorID),
		zap.Int("programs", len(quotas)),
	)
	return &models.ElectiveDetail{Elective: *elective, Quotas: quotas}, nil
}

// Review records the department head's decision on a PENDING elective.
func (s *ElectiveService) Review(ctx context.Context, id string, req ReviewElectiveRequest) (*models.Elective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	elective, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}
	if elective.Status != models.ElectiveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "elective already reviewed")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update elective status")
	}
	s.invalidateCache(ctx)

	elective.Status = req.Status
	return elective, nil
}

// List returns electives with pagination metadata, served from cache
// when possible.
func (s *ElectiveService) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, *models.Pagination, error) {
	type cachedList struct {
		Electives  []models.Elective  `json:"electives"`
		Pagination *models.Pagination `json:"pagination"`
	}

	key := s.listCacheKey(filter)
	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached.Electives, cached.Pagination, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	electives, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list electives")
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

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedList{Electives: electives, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache elective list", zap.Error(err))
		}
	}
	return electives, pagination, nil
}

// Get returns an elective with its declared quotas.
func (s *ElectiveService) Get(ctx context.Context, id string) (*models.ElectiveDetail, error) {
	elective, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}
	quotas, err := s.quotas.ListByElective(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotas")
	}
	return &models.ElectiveDetail{Elective: *elective, Quotas: quotas}, nil
}

// Roster returns the approved students for an elective. Rosters become
// visible only after the enrollment period for the elective's term has
// ended.
func (s *ElectiveService) Roster(ctx context.Context, electiveID string) ([]models.RosterEntry, error) {
	elective, err := s.repo.FindByID(ctx, electiveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}

	finished, err := s.periods.IsFinished(ctx, elective.Year, elective.Term, s.now())
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "roster is available once the enrollment period ends")
	}

	entries, err := s.roster.Roster(ctx, electiveID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return entries, nil
}

// ExportRoster renders the roster as CSV or PDF.
func (s *ElectiveService) ExportRoster(ctx context.Context, electiveID, format string) (*RosterExport, error) {
	elective, err := s.repo.FindByID(ctx, electiveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}

	entries, err := s.Roster(ctx, electiveID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Program", "Priority"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":  entry.StudentName,
			"Program":  entry.Program,
			"Priority": strconv.Itoa(entry.Priority),
		})
	}

	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Roster %s", elective.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{Filename: fmt.Sprintf("roster-%s.pdf", electiveID), ContentType: "application/pdf", Content: content}, nil
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{Filename: fmt.Sprintf("roster-%s.csv", electiveID), ContentType: "text/csv", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ElectiveService) listCacheKey(filter models.ElectiveFilter) string {
	return fmt.Sprintf("electives:%s:%d:%d:%d:%d", filter.Status, filter.Year, filter.Term, filter.Page, filter.PageSize)
}

func (s *ElectiveService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "electives:*"); err != nil {
		s.logger.Warn("failed to invalidate elective cache", zap.Error(err))
	}
}
