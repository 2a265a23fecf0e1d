package models

import "time"

// RequestStatus represents the adjudication state of an enrollment request.
type RequestStatus string

// Possible request statuses.
const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Valid reports whether the status is one of the known values.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// Priority bounds for a student's ranked preferences.
const (
	MinPriority = 1
	MaxPriority = 3
)

// EnrollmentRequest captures a student's ranked request for an elective.
// A student holds at most one request per elective and at most one per
// priority value.
type EnrollmentRequest struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	ElectiveID      string        `db:"elective_id" json:"elective_id"`
	Priority        int           `db:"priority" json:"priority"`
	Status          RequestStatus `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail enriches EnrollmentRequest with student and elective info.
type RequestDetail struct {
	EnrollmentRequest
	StudentName  string `db:"student_name" json:"student_name"`
	Program      string `db:"program" json:"program"`
	ElectiveName string `db:"elective_name" json:"elective_name"`
}

// RequestFilter provides filters for listing enrollment requests.
type RequestFilter struct {
	Status     RequestStatus
	ElectiveID string
	StudentID  string
	Page       int
	PageSize   int
}
