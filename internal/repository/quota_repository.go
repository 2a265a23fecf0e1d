package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nmunozf/electivos-api/internal/models"
)

// QuotaRepository reads the per-program seat ledger. Seats are consumed
// through RequestRepository.ApproveConsumingSeat; nothing in this
// service ever increments remaining_seats.
type QuotaRepository struct {
	db *sqlx.DB
}

// NewQuotaRepository constructs the repository.
func NewQuotaRepository(db *sqlx.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// FindByID returns a quota row by its ID.
func (r *QuotaRepository) FindByID(ctx context.Context, id string) (*models.ProgramQuota, error) {
	const query = `SELECT id, elective_id, program, total_seats, remaining_seats, created_at FROM program_quotas WHERE id = $1`
	var quota models.ProgramQuota
	if err := r.db.GetContext(ctx, &quota, query, id); err != nil {
		return nil, err
	}
	return &quota, nil
}

// FindByElectiveAndProgram returns the quota declared for a program on
// an elective. A program without a row is not offered the elective.
func (r *QuotaRepository) FindByElectiveAndProgram(ctx context.Context, electiveID, program string) (*models.ProgramQuota, error) {
	const query = `SELECT id, elective_id, program, total_seats, remaining_seats, created_at FROM program_quotas WHERE elective_id = $1 AND program = $2`
	var quota models.ProgramQuota
	if err := r.db.GetContext(ctx, &quota, query, electiveID, program); err != nil {
		return nil, err
	}
	return &quota, nil
}

// ListByElective returns all quotas declared for an elective.
func (r *QuotaRepository) ListByElective(ctx context.Context, electiveID string) ([]models.ProgramQuota, error) {
	const query = `SELECT id, elective_id, program, total_seats, remaining_seats, created_at FROM program_quotas WHERE elective_id = $1 ORDER BY program ASC`
	var quotas []models.ProgramQuota
	if err := r.db.SelectContext(ctx, &quotas, query, electiveID); err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	return quotas, nil
}
