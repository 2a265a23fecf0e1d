package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newQuotaRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestQuotaRepositoryFindByElectiveAndProgram(t *testing.T) {
	db, mock, cleanup := newQuotaRepoMock(t)
	defer cleanup()
	repo := NewQuotaRepository(db)

	rows := sqlmock.NewRows([]string{"id", "elective_id", "program", "total_seats", "remaining_seats", "created_at"}).
		AddRow("quota-1", "ele-1", "ICI", 10, 4, time.Now())
	mock.ExpectQuery("FROM program_quotas WHERE elective_id = \\$1 AND program = \\$2").
		WithArgs("ele-1", "ICI").
		WillReturnRows(rows)

	quota, err := repo.FindByElectiveAndProgram(context.Background(), "ele-1", "ICI")
	require.NoError(t, err)
	require.Equal(t, 4, quota.RemainingSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepositoryFindByElectiveAndProgramMissing(t *testing.T) {
	db, mock, cleanup := newQuotaRepoMock(t)
	defer cleanup()
	repo := NewQuotaRepository(db)

	mock.ExpectQuery("FROM program_quotas WHERE elective_id = \\$1 AND program = \\$2").
		WithArgs("ele-1", "ARQ").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByElectiveAndProgram(context.Background(), "ele-1", "ARQ")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestQuotaRepositoryListByElective(t *testing.T) {
	db, mock, cleanup := newQuotaRepoMock(t)
	defer cleanup()
	repo := NewQuotaRepository(db)

	rows := sqlmock.NewRows([]string{"id", "elective_id", "program", "total_seats", "remaining_seats", "created_at"}).
		AddRow("quota-1", "ele-1", "ICI", 10, 10, time.Now()).
		AddRow("quota-2", "ele-1", "IEC", 5, 5, time.Now())
	mock.ExpectQuery("FROM program_quotas WHERE elective_id = \\$1 ORDER BY program ASC").
		WithArgs("ele-1").
		WillReturnRows(rows)

	quotas, err := repo.ListByElective(context.Background(), "ele-1")
	require.NoError(t, err)
	require.Len(t, quotas, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
