package models

import "time"

// ElectiveStatus is the catalog lifecycle of a proposed elective.
type ElectiveStatus string

// Possible elective statuses.
const (
	ElectiveStatusPending  ElectiveStatus = "PENDING"
	ElectiveStatusApproved ElectiveStatus = "APPROVED"
	ElectiveStatusRejected ElectiveStatus = "REJECTED"
)

// Elective is an optional course offering proposed by a professor and
// reviewed by the department head.
type Elective struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description,omitempty"`
	ProfessorID string         `db:"professor_id" json:"professor_id"`
	Year        int            `db:"year" json:"year"`
	Term        int            `db:"term" json:"term"`
	Status      ElectiveStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ElectiveDetail bundles an elective with its declared program quotas.
type ElectiveDetail struct {
	Elective
	Quotas []ProgramQuota `json:"quotas"`
}

// ElectiveFilter provides filters for listing electives.
type ElectiveFilter struct {
	Status   ElectiveStatus
	Year     int
	Term     int
	Page     int
	PageSize int
}

// RosterEntry is one approved student on an elective's final roster.
type RosterEntry struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Program     string `db:"program" json:"program"`
	Priority    int    `db:"priority" json:"priority"`
}
