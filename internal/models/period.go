package models

import "time"

// Academic terms per year.
const (
	TermFirst  = 1
	TermSecond = 2
)

// EnrollmentPeriod is the date window during which submissions are
// accepted for a (year, term). At most one row exists per key.
type EnrollmentPeriod struct {
	ID        string    `db:"id" json:"id"`
	Year      int       `db:"year" json:"year"`
	Term      int       `db:"term" json:"term"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodStatus reports the window state for a (year, term).
type PeriodStatus struct {
	Year     int  `json:"year"`
	Term     int  `json:"term"`
	Open     bool `json:"open"`
	Finished bool `json:"finished"`
}
