package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmunozf/electivos-api/internal/models"
)

// PeriodRepository handles persistence of enrollment periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Upsert stores the period for (year, term), replacing an existing row
// rather than duplicating it.
func (r *PeriodRepository) Upsert(ctx context.Context, period *models.EnrollmentPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now

	const query = `INSERT INTO enrollment_periods (id, year, term, starts_at, ends_at, created_at, updated_at)
        VALUES (:id, :year, :term, :starts_at, :ends_at, :created_at, :updated_at)
        ON CONFLICT (year, term) DO UPDATE SET starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("upsert enrollment period: %w", err)
	}
	return nil
}

// FindByYearTerm returns the period configured for (year, term).
func (r *PeriodRepository) FindByYearTerm(ctx context.Context, year, term int) (*models.EnrollmentPeriod, error) {
	const query = `SELECT id, year, term, starts_at, ends_at, created_at, updated_at FROM enrollment_periods WHERE year = $1 AND term = $2`
	var period models.EnrollmentPeriod
	if err := r.db.GetContext(ctx, &period, query, year, term); err != nil {
		return nil, err
	}
	return &period, nil
}
