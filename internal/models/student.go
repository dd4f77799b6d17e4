package models

// Student is a roster entry carrying the parent contact address.
type Student struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	ParentEmail string `db:"parent_email" json:"parent_email"`
}
