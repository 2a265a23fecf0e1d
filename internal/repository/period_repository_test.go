package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nmunozf/electivos-api/internal/models"
)

func newPeriodRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPeriodRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO enrollment_periods.*ON CONFLICT \(year, term\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), 2026, 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	period := &models.EnrollmentPeriod{
		Year:     2026,
		Term:     1,
		StartsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Upsert(context.Background(), period)
	require.NoError(t, err)
	require.NotEmpty(t, period.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindByYearTerm(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	rows := sqlmock.NewRows([]string{"id", "year", "term", "starts_at", "ends_at", "created_at", "updated_at"}).
		AddRow("per-1", 2026, 1, time.Now(), time.Now().Add(24*time.Hour), time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM enrollment_periods WHERE year = \\$1 AND term = \\$2").
		WithArgs(2026, 1).
		WillReturnRows(rows)

	period, err := repo.FindByYearTerm(context.Background(), 2026, 1)
	require.NoError(t, err)
	require.Equal(t, "per-1", period.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindByYearTermMissing(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery("SELECT .* FROM enrollment_periods").
		WithArgs(2026, 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByYearTerm(context.Background(), 2026, 2)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
