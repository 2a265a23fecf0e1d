package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmunozf/electivos-api/internal/models"
)

// ElectiveRepository handles persistence of the elective catalog.
type ElectiveRepository struct {
	db *sqlx.DB
}

// NewElectiveRepository constructs the repository.
func NewElectiveRepository(db *sqlx.DB) *ElectiveRepository {
	return &ElectiveRepository{db: db}
}

// Create inserts the elective and seeds one quota row per declared
// program in a single transaction.
func (r *ElectiveRepository) Create(ctx context.Context, elective *models.Elective, quotas []models.ProgramQuota) error {
	if elective.ID == "" {
		elective.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if elective.CreatedAt.IsZero() {
		elective.CreatedAt = now
	}
	elective.UpdatedAt = now
	if elective.Status == "" {
		elective.Status = models.ElectiveStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create elective tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const electiveQuery = `INSERT INTO electives (id, name, description, professor_id, year, term, status, created_at, updated_at)
        VALUES (:id, :name, :description, :professor_id, :year, :term, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, electiveQuery, elective); err != nil {
		return fmt.Errorf("create elective: %w", err)
	}

	const quotaQuery = `INSERT INTO program_quotas (id, elective_id, program, total_seats, remaining_seats, created_at)
        VALUES (:id, :elective_id, :program, :total_seats, :remaining_seats, :created_at)`
	for i := range quotas {
		quotas[i].ElectiveID = elective.ID
		if quotas[i].ID == "" {
			quotas[i].ID = uuid.NewString()
		}
		if quotas[i].CreatedAt.IsZero() {
			quotas[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, quotaQuery, quotas[i]); err != nil {
			return fmt.Errorf("seed program quota: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create elective tx: %w", err)
	}
	return nil
}

// FindByID returns an elective by its ID.
func (r *ElectiveRepository) FindByID(ctx context.Context, id string) (*models.Elective, error) {
	const query = `SELECT id, name, description, professor_id, year, term, status, created_at, updated_at FROM electives WHERE id = $1`
	var elective models.Elective
	if err := r.db.GetContext(ctx, &elective, query, id); err != nil {
		return nil, err
	}
	return &elective, nil
}

// List returns electives matching provided filters.
func (r *ElectiveRepository) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, int, error) {
	base := "FROM electives WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Term != 0 {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, description, professor_id, year, term, status, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)

	var electives []models.Elective
	if err := r.db.SelectContext(ctx, &electives, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list electives: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count electives: %w", err)
	}
	return electives, total, nil
}

// UpdateStatus records the department head's decision.
func (r *ElectiveRepository) UpdateStatus(ctx context.Context, id string, status models.ElectiveStatus) error {
	const query = `UPDATE electives SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update elective status: %w", err)
	}
	return nil
}
