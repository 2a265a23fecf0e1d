package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nmunozf/electivos-api/internal/models"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

type electiveRepoStub struct {
	items     map[string]*models.Elective
	created   []*models.Elective
	quotas    map[string][]models.ProgramQuota
	listCalls int
	nextID    int
}

func newElectiveRepoStub() *electiveRepoStub {
	return &electiveRepoStub{
		items:  make(map[string]*models.Elective),
		quotas: make(map[string][]models.ProgramQuota),
	}
}

func (s *electiveRepoStub) Create(ctx context.Context, elective *models.Elective, quotas []models.ProgramQuota) error {
	if elective.ID == "" {
		s.nextID++
		elective.ID = fmt.Sprintf("ele-%d", s.nextID)
	}
	cp := *elective
	s.items[elective.ID] = &cp
	s.created = append(s.created, &cp)
	s.quotas[elective.ID] = quotas
	return nil
}

func (s *electiveRepoStub) FindByID(ctx context.Context, id string) (*models.Elective, error) {
	elective, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *elective
	return &cp, nil
}

func (s *electiveRepoStub) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, int, error) {
	s.listCalls++
	var electives []models.Elective
	for _, elective := range s.items {
		electives = append(electives, *elective)
	}
	return electives, len(electives), nil
}

func (s *electiveRepoStub) UpdateStatus(ctx context.Context, id string, status models.ElectiveStatus) error {
	elective, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	elective.Status = status
	return nil
}

type quotaListerStub struct {
	quotas map[string][]models.ProgramQuota
}

func (s *quotaListerStub) ListByElective(ctx context.Context, electiveID string) ([]models.ProgramQuota, error) {
	return s.quotas[electiveID], nil
}

type rosterReaderStub struct {
	entries []models.RosterEntry
}

func (s *rosterReaderStub) Roster(ctx context.Context, electiveID string) ([]models.RosterEntry, error) {
	return s.entries, nil
}

type rosterGateStub struct {
	finished bool
}

func (s *rosterGateStub) IsFinished(ctx context.Context, year, term int, at time.Time) (bool, error) {
	return s.finished, nil
}

type cacheStub struct {
	store map[string][]byte
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

type electiveFixture struct {
	service *ElectiveService
	repo    *electiveRepoStub
	roster  *rosterReaderStub
	gate    *rosterGateStub
	cache   *cacheStub
}

func newElectiveFixture(t *testing.T) *electiveFixture {
	t.Helper()
	repo := newElectiveRepoStub()
	roster := &rosterReaderStub{}
	gate := &rosterGateStub{}
	cache := newCacheStub()
	quotas := &quotaListerStub{quotas: repo.quotas}

	svc := NewElectiveService(repo, quotas, roster, gate, cache, nil, nil, nil, time.Minute)
	return &electiveFixture{service: svc, repo: repo, roster: roster, gate: gate, cache: cache}
}

func TestElectiveServiceProposeSeedsQuotas(t *testing.T) {
	f := newElectiveFixture(t)

	detail, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas: []ProgramQuotaInput{
			{Program: "ICI", Seats: 10},
			{Program: "IEC", Seats: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.ElectiveStatusPending, detail.Status)
	require.Len(t, detail.Quotas, 2)
	require.Equal(t, 10, detail.Quotas[0].TotalSeats)
	require.Equal(t, 10, detail.Quotas[0].RemainingSeats)
}

func TestElectiveServiceProposeDuplicateProgram(t *testing.T) {
	f := newElectiveFixture(t)

	_, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas: []ProgramQuotaInput{
			{Program: "ICI", Seats: 10},
			{Program: "ICI", Seats: 5},
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "declared more than once")
}

func TestElectiveServiceProposeRequiresQuotas(t *testing.T) {
	f := newElectiveFixture(t)

	_, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestElectiveServiceReviewOnlyOnce(t *testing.T) {
	f := newElectiveFixture(t)

	detail, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	reviewed, err := f.service.Review(context.Background(), detail.ID, ReviewElectiveRequest{Status: models.ElectiveStatusApproved})
	require.NoError(t, err)
	require.Equal(t, models.ElectiveStatusApproved, reviewed.Status)

	_, err = f.service.Review(context.Background(), detail.ID, ReviewElectiveRequest{Status: models.ElectiveStatusRejected})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestElectiveServiceListUsesCache(t *testing.T) {
	f := newElectiveFixture(t)

	_, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	_, _, err = f.service.List(context.Background(), models.ElectiveFilter{})
	require.NoError(t, err)
	_, _, err = f.service.List(context.Background(), models.ElectiveFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.listCalls)
}

func TestElectiveServiceProposeInvalidatesListCache(t *testing.T) {
	f := newElectiveFixture(t)

	_, _, err := f.service.List(context.Background(), models.ElectiveFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.listCalls)

	_, err = f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	_, _, err = f.service.List(context.Background(), models.ElectiveFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, f.repo.listCalls)
}

func TestElectiveServiceRosterGatedOnPeriodEnd(t *testing.T) {
	f := newElectiveFixture(t)
	f.roster.entries = []models.RosterEntry{{StudentID: "stu-1", StudentName: "Ana Rojas", Program: "ICI", Priority: 1}}

	detail, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	_, err = f.service.Roster(context.Background(), detail.ID)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	f.gate.finished = true
	entries, err := f.service.Roster(context.Background(), detail.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestElectiveServiceExportRosterCSV(t *testing.T) {
	f := newElectiveFixture(t)
	f.gate.finished = true
	f.roster.entries = []models.RosterEntry{{StudentID: "stu-1", StudentName: "Ana Rojas", Program: "ICI", Priority: 1}}

	detail, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	doc, err := f.service.ExportRoster(context.Background(), detail.ID, "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", doc.ContentType)
	require.Contains(t, string(doc.Content), "Ana Rojas")
}

func TestElectiveServiceExportRosterUnsupportedFormat(t *testing.T) {
	f := newElectiveFixture(t)
	f.gate.finished = true

	detail, err := f.service.Propose(context.Background(), ProposeElectiveRequest{
		Name:        "Robotics",
		ProfessorID: "prof-1",
		Year:        2026,
		Term:        1,
		Quotas:      []ProgramQuotaInput{{Program: "ICI", Seats: 10}},
	})
	require.NoError(t, err)

	_, err = f.service.ExportRoster(context.Background(), detail.ID, "xlsx")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported export format")
}
