package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nmunozf/electivos-api/internal/models"
	appErrors "github.com/nmunozf/electivos-api/pkg/errors"
)

// Unique constraint names on enrollment_requests.
const (
	constraintStudentElective = "uq_requests_student_elective"
	constraintStudentPriority = "uq_requests_student_priority"
)

// RequestRepository handles persistence of enrollment requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create persists a new enrollment request. Uniqueness violations on
// (student, elective) or (student, priority) are reported as duplicate
// errors carrying a caller-facing message.
func (r *RequestRepository) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	const query = `INSERT INTO enrollment_requests (id, student_id, elective_id, priority, status, rejection_reason, created_at, updated_at)
        VALUES (:id, :student_id, :elective_id, :priority, :status, :rejection_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintStudentElective:
				return appErrors.Clone(appErrors.ErrDuplicate, "student already requested this elective")
			case constraintStudentPriority:
				return appErrors.Clone(appErrors.ErrDuplicate, "priority already used by this student")
			default:
				return appErrors.Clone(appErrors.ErrDuplicate, "")
			}
		}
		return fmt.Errorf("create enrollment request: %w", err)
	}
	return nil
}

// FindByID returns a request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_id, elective_id, priority, status, rejection_reason, created_at, updated_at FROM enrollment_requests WHERE id = $1`
	var request models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a request with student and elective info.
func (r *RequestRepository) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	const query = `SELECT r.id, r.student_id, r.elective_id, r.priority, r.status, r.rejection_reason, r.created_at, r.updated_at,
        s.full_name AS student_name, s.program, e.name AS elective_name
        FROM enrollment_requests r
        LEFT JOIN students s ON s.id = r.student_id
        LEFT JOIN electives e ON e.id = r.elective_id
        WHERE r.id = $1`
	var detail models.RequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns requests filtered by the provided criteria, ordered by
// priority then submission time. The ordering is presentational; it is
// not an approval gate.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	base := `FROM enrollment_requests r
LEFT JOIN students s ON s.id = r.student_id
LEFT JOIN electives e ON e.id = r.elective_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ElectiveID != "" {
		conditions = append(conditions, fmt.Sprintf("r.elective_id = $%d", len(args)+1))
		args = append(args, filter.ElectiveID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT r.id, r.student_id, r.elective_id, r.priority, r.status, r.rejection_reason, r.created_at, r.updated_at,
        s.full_name AS student_name, s.program, e.name AS elective_name
        %s ORDER BY r.priority ASC, r.created_at ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment requests: %w", err)
	}
	return requests, total, nil
}

// UpdateStatus transitions a request. The rejection reason is retained
// only for REJECTED; any other status clears it.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, reason *string) error {
	if status != models.RequestStatusRejected {
		reason = nil
	}
	const query = `UPDATE enrollment_requests SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// ApproveConsumingSeat atomically reserves one seat on the quota and
// marks the request APPROVED in a single transaction. The conditional
// decrement is the concurrency guard: when two callers race for the
// last seat, only one UPDATE matches. Returns false without mutating
// anything when no seat could be reserved.
func (r *RequestRepository) ApproveConsumingSeat(ctx context.Context, requestID, quotaID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE program_quotas SET remaining_seats = remaining_seats - 1 WHERE id = $1 AND remaining_seats > 0`, quotaID)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat result: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	if _, err = tx.ExecContext(ctx, `UPDATE enrollment_requests SET status = $2, rejection_reason = NULL, updated_at = $3 WHERE id = $1`, requestID, models.RequestStatusApproved, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("approve request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve tx: %w", err)
	}
	return true, nil
}

// Roster returns the approved students for an elective.
func (r *RequestRepository) Roster(ctx context.Context, electiveID string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.full_name AS student_name, s.program, r.priority
        FROM enrollment_requests r
        JOIN students s ON s.id = r.student_id
        WHERE r.elective_id = $1 AND r.status = $2
        ORDER BY s.full_name ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, electiveID, models.RequestStatusApproved); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}

func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}
