package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// AbsenceStreak is a maximal run of consecutive absent days for one student.
type AbsenceStreak struct {
	StudentID       string
	StartDate       time.Time
	EndDate         time.Time
	TotalAbsentDays int
}

// NotificationRow is one output row of an absence alert run.
type NotificationRow struct {
	StudentID        string    `json:"student_id"`
	AbsenceStartDate time.Time `json:"absence_start_date"`
	AbsenceEndDate   time.Time `json:"absence_end_date"`
	TotalAbsentDays  int       `json:"total_absent_days"`
	Email            *string   `json:"email"`
	Msg              *string   `json:"msg"`
}

type notificationRowJSON struct {
	StudentID        string  `json:"student_id"`
	AbsenceStartDate string  `json:"absence_start_date"`
	AbsenceEndDate   string  `json:"absence_end_date"`
	TotalAbsentDays  int     `json:"total_absent_days"`
	Email            *string `json:"email"`
	Msg              *string `json:"msg"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r NotificationRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationRowJSON{
		StudentID:        r.StudentID,
		AbsenceStartDate: r.AbsenceStartDate.Format(DateLayout),
		AbsenceEndDate:   r.AbsenceEndDate.Format(DateLayout),
		TotalAbsentDays:  r.TotalAbsentDays,
		Email:            r.Email,
		Msg:              r.Msg,
	})
}

// UnmarshalJSON accepts the YYYY-MM-DD representation produced by MarshalJSON.
func (r *NotificationRow) UnmarshalJSON(data []byte) error {
	var raw notificationRowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, raw.AbsenceStartDate)
	if err != nil {
		return err
	}
	end, err := time.Parse(DateLayout, raw.AbsenceEndDate)
	if err != nil {
		return err
	}
	*r = NotificationRow{
		StudentID:        raw.StudentID,
		AbsenceStartDate: start,
		AbsenceEndDate:   end,
		TotalAbsentDays:  raw.TotalAbsentDays,
		Email:            raw.Email,
		Msg:              raw.Msg,
	}
	return nil
}

// RunSummary aggregates counters for a single alert run.
type RunSummary struct {
	AttendanceRows    int `json:"attendance_rows"`
	StudentsEvaluated int `json:"students_evaluated"`
	StreaksDetected   int `json:"streaks_detected"`
	Qualifying        int `json:"qualifying"`
	Notifications     int `json:"notifications"`
	InvalidEmails     int `json:"invalid_emails"`
	UnmatchedStudents int `json:"unmatched_students"`
	DuplicateRoster   int `json:"duplicate_roster_entries"`
}

// AlertResult bundles rows and summary; it is also the cached payload.
type AlertResult struct {
	Rows    []NotificationRow `json:"rows"`
	Summary RunSummary        `json:"summary"`
}
