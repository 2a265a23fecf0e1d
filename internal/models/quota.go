package models

import "time"

// ProgramQuota reserves a slice of an elective's capacity for one
// academic program. Seats only ever decrease through this service;
// corrections are a manual DBA operation.
type ProgramQuota struct {
	ID             string    `db:"id" json:"id"`
	ElectiveID     string    `db:"elective_id" json:"elective_id"`
	Program        string    `db:"program" json:"program"`
	TotalSeats     int       `db:"total_seats" json:"total_seats"`
	RemainingSeats int       `db:"remaining_seats" json:"remaining_seats"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
