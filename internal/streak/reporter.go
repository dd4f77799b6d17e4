package streak

import "github.com/noah-isme/sma-absence-alerts/internal/models"

// DefaultMinAbsentDays is the streak length a student must exceed to be reported.
const DefaultMinAbsentDays = 3

// Options tunes a Reporter.
type Options struct {
	// MinAbsentDays is exclusive: a streak qualifies when it is strictly longer.
	MinAbsentDays int
}

// Reporter turns attendance and roster tables into notification rows.
type Reporter struct {
	minAbsentDays int
}

// NewReporter constructs a Reporter, falling back to DefaultMinAbsentDays.
func NewReporter(opts Options) *Reporter {
	if opts.MinAbsentDays <= 0 {
		opts.MinAbsentDays = DefaultMinAbsentDays
	}
	return &Reporter{minAbsentDays: opts.MinAbsentDays}
}

// MinAbsentDays returns the configured exclusive threshold.
func (r *Reporter) MinAbsentDays() int {
	return r.minAbsentDays
}

// Run detects each student's latest streak, keeps the long ones and attaches
// parent contact details. Rows are ordered by student id.
func (r *Reporter) Run(attendance []models.AttendanceRecord, roster []models.Student) models.AlertResult {
	summary := models.RunSummary{AttendanceRows: len(attendance)}

	students := make(map[string]struct{})
	for _, rec := range attendance {
		students[rec.StudentID] = struct{}{}
	}
	summary.StudentsEvaluated = len(students)

	all := Detect(attendance)
	summary.StreaksDetected = len(all)

	byID := make(map[string]models.Student, len(roster))
	for _, s := range roster {
		if _, exists := byID[s.StudentID]; exists {
			summary.DuplicateRoster++
			continue
		}
		byID[s.StudentID] = s
	}

	rows := make([]models.NotificationRow, 0)
	for _, s := range LatestPerStudent(all) {
		if s.TotalAbsentDays <= r.minAbsentDays {
			continue
		}
		summary.Qualifying++

		row := models.NotificationRow{
			StudentID:        s.StudentID,
			AbsenceStartDate: s.StartDate,
			AbsenceEndDate:   s.EndDate,
			TotalAbsentDays:  s.TotalAbsentDays,
		}
		student, matched := byID[s.StudentID]
		switch {
		case !matched:
			summary.UnmatchedStudents++
		case !IsValidParentEmail(student.ParentEmail):
			summary.InvalidEmails++
		default:
			email := student.ParentEmail
			msg := FormatMessage(student.StudentName, s)
			row.Email = &email
			row.Msg = &msg
			summary.Notifications++
		}
		rows = append(rows, row)
	}

	return models.AlertResult{Rows: rows, Summary: summary}
}
