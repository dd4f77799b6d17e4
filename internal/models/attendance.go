package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
	AttendanceStatusSick    AttendanceStatus = "Sick"
	AttendanceStatusExcused AttendanceStatus = "Excused"
)

// Known returns true when the status is one of the recognised values.
func (s AttendanceStatus) Known() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusSick, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// StatusFromCode maps the single letter codes stored in daily_attendance.
func StatusFromCode(code string) AttendanceStatus {
	switch code {
	case "H":
		return AttendanceStatusPresent
	case "A":
		return AttendanceStatusAbsent
	case "S":
		return AttendanceStatusSick
	case "I":
		return AttendanceStatusExcused
	default:
		return AttendanceStatus(code)
	}
}

// AttendanceRecord is one student's status for one calendar day.
type AttendanceRecord struct {
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"attendance_date"`
	Status    AttendanceStatus `db:"status" json:"status"`
}

// AttendanceFilter scopes attendance reads from the store.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
