package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
)

func TestReadCSVAttendance(t *testing.T) {
	input := "\ufeffstudent_id,attendance_date,status\nS1,2024-01-01,Absent\nS1,2024-01-02T08:00:00Z,Present\n,,\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "attendance_date", "status"}, table.Headers)
	require.Len(t, table.Rows, 2)

	records, err := ParseAttendance(table)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AttendanceRecord{StudentID: "S1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: models.AttendanceStatusAbsent}, records[0])
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), records[1].Date)
}

func TestParseAttendanceMissingColumn(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("student_id,date\nS1,2024-01-01\n"))
	require.NoError(t, err)

	_, err = ParseAttendance(table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSchema))
	assert.Contains(t, err.Error(), "attendance_date")
	assert.Contains(t, err.Error(), "status")
}

func TestParseAttendanceInvalidDate(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("student_id,attendance_date,status\nS1,2024-01-01,Absent\nS1,yesterday,Absent\n"))
	require.NoError(t, err)

	_, err = ParseAttendance(table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidDate))
	assert.Contains(t, err.Error(), "row 3")
}

func TestParseAttendanceHeaderOnly(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("student_id,attendance_date,status\n"))
	require.NoError(t, err)

	records, err := ParseAttendance(table)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRoster(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("student_id,student_name,parent_email,class\nS1,Alice,alice@example.com,X-A\nS2,Bob\n"))
	require.NoError(t, err)

	roster, err := ParseRoster(table)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, models.Student{StudentID: "S1", StudentName: "Alice", ParentEmail: "alice@example.com"}, roster[0])
	assert.Equal(t, "", roster[1].ParentEmail)

	_, err = ParseRoster(Table{Name: "students", Headers: []string{"student_id"}})
	assert.True(t, errors.Is(err, appErrors.ErrSchema))
}

func TestParseRosterKeepsEmailPadding(t *testing.T) {
	input := "student_id,student_name,parent_email\n S1 ,Alice,\"john@example.com  \"\nS2,Bob, bob@example.com\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	roster, err := ParseRoster(table)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "S1", roster[0].StudentID)
	assert.Equal(t, "john@example.com  ", roster[0].ParentEmail)
	assert.Equal(t, " bob@example.com", roster[1].ParentEmail)
}

func TestReadDispatchesOnExtension(t *testing.T) {
	_, err := Read("roster.ods", strings.NewReader(""))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	table, err := Read("roster.CSV", strings.NewReader("student_id\nS1\n"))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestXLSXRoundTrip(t *testing.T) {
	payload, err := WriteXLSX(Table{
		Headers: []string{"student_id", "attendance_date", "status"},
		Rows:    [][]string{{"S1", "2024-01-01", "Absent"}},
	})
	require.NoError(t, err)

	table, err := Read("attendance.xlsx", bytes.NewReader(payload))
	require.NoError(t, err)
	records, err := ParseAttendance(table)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestXLSXDateSerials(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"student_id", "attendance_date", "status"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"S1", 45292, "Absent"}))
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	require.NoError(t, f.Close())

	table, err := ReadXLSX(buf)
	require.NoError(t, err)
	records, err := ParseAttendance(table)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestCSVRejectsDateSerials(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("student_id,attendance_date,status\nS1,45292,Absent\n"))
	require.NoError(t, err)
	_, err = ParseAttendance(table)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidDate))
}
