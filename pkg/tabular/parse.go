package tabular

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
)

// Required column names.
const (
	ColStudentID      = "student_id"
	ColAttendanceDate = "attendance_date"
	ColStatus         = "status"
	ColStudentName    = "student_name"
	ColParentEmail    = "parent_email"
)

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseAttendance converts a table into attendance records.
func ParseAttendance(t Table) ([]models.AttendanceRecord, error) {
	if t.Name == "" {
		t.Name = "attendance"
	}
	if err := t.Require(ColStudentID, ColAttendanceDate, ColStatus); err != nil {
		return nil, err
	}
	idCol, dateCol, statusCol := t.Column(ColStudentID), t.Column(ColAttendanceDate), t.Column(ColStatus)

	records := make([]models.AttendanceRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		raw := t.Cell(row, dateCol)
		date, err := parseDate(raw, t.dateSerials)
		if err != nil {
			// i+2: one for the header row, one for 1-based numbering.
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status,
				fmt.Sprintf("%s row %d: %s is not a date: %q", t.Name, i+2, ColAttendanceDate, raw))
		}
		records = append(records, models.AttendanceRecord{
			StudentID: t.Cell(row, idCol),
			Date:      date,
			Status:    models.AttendanceStatus(t.Cell(row, statusCol)),
		})
	}
	return records, nil
}

// ParseRoster converts a table into roster entries. Names and emails are kept
// verbatim so padded emails fail validation the same way inline ones do.
func ParseRoster(t Table) ([]models.Student, error) {
	if t.Name == "" {
		t.Name = "students"
	}
	if err := t.Require(ColStudentID, ColStudentName, ColParentEmail); err != nil {
		return nil, err
	}
	idCol, nameCol, emailCol := t.Column(ColStudentID), t.Column(ColStudentName), t.Column(ColParentEmail)

	roster := make([]models.Student, 0, len(t.Rows))
	for _, row := range t.Rows {
		roster = append(roster, models.Student{
			StudentID:   t.Cell(row, idCol),
			StudentName: t.RawCell(row, nameCol),
			ParentEmail: t.RawCell(row, emailCol),
		})
	}
	return roster, nil
}

// ParseDate parses a calendar date in one of the accepted text layouts.
func ParseDate(raw string) (time.Time, error) {
	return parseDate(raw, false)
}

func parseDate(raw string, serials bool) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.DateOnly(t), nil
		}
	}
	if serials {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return models.DateOnly(t), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
