package models

// Student is the identity projection this service reads. Accounts and
// profiles are owned by the campus identity system.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Program  string `db:"program" json:"program"`
}
