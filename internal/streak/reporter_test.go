package streak

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

func TestIsValidParentEmail(t *testing.T) {
	cases := map[string]bool{
		"john_doe@example.com":  true,
		"_parent@school.com":    true,
		"Jane2@Mail.com":        true,
		"1john@example.com":     false,
		"john@example.net":      false,
		"john@ex1.com":          false,
		"john.doe@example.com":  false,
		"john@sub.example.com":  false,
		"john@example.COM":      false,
		"john-doe@example.com":  false,
		"":                      false,
		"john@example.com\n":    true,
		"john@example.com\n\n":  false,
		" john@example.com":     false,
	}
	for email, want := range cases {
		assert.Equal(t, want, IsValidParentEmail(email), "email %q", email)
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage("Budi", models.AbsenceStreak{StartDate: day("2024-01-01"), EndDate: day("2024-01-05"), TotalAbsentDays: 5})
	assert.Equal(t, "Dear Parent, your child Budi was absent from 2024-01-01 to 2024-01-05 for 5 days. Please ensure their attendance improves.", msg)
}

func TestReporterEndToEnd(t *testing.T) {
	attendance := absentRun("S1", "2024-01-01", 5)
	attendance = append(attendance,
		rec("S1", "2024-01-06", models.AttendanceStatusPresent),
		rec("S1", "2024-01-07", models.AttendanceStatusPresent),
	)
	attendance = append(attendance, absentRun("S2", "2024-01-01", 3)...)
	attendance = append(attendance, rec("S3", "2024-01-01", models.AttendanceStatusPresent))
	roster := []models.Student{
		{StudentID: "S1", StudentName: "Alice", ParentEmail: "alice_parent@example.com"},
		{StudentID: "S2", StudentName: "Bob", ParentEmail: "bob@example.com"},
		{StudentID: "S3", StudentName: "Cara", ParentEmail: "cara@example.com"},
	}

	result := NewReporter(Options{}).Run(attendance, roster)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, "S1", row.StudentID)
	assert.Equal(t, day("2024-01-01"), row.AbsenceStartDate)
	assert.Equal(t, day("2024-01-05"), row.AbsenceEndDate)
	assert.Equal(t, 5, row.TotalAbsentDays)
	require.NotNil(t, row.Email)
	assert.Equal(t, "alice_parent@example.com", *row.Email)
	require.NotNil(t, row.Msg)
	assert.Equal(t, "Dear Parent, your child Alice was absent from 2024-01-01 to 2024-01-05 for 5 days. Please ensure their attendance improves.", *row.Msg)

	assert.Equal(t, models.RunSummary{
		AttendanceRows:    len(attendance),
		StudentsEvaluated: 3,
		StreaksDetected:   2,
		Qualifying:        1,
		Notifications:     1,
	}, result.Summary)
}

func TestReporterThresholdIsStrict(t *testing.T) {
	attendance := append(absentRun("S3", "2024-01-01", 3), absentRun("S4", "2024-01-01", 4)...)
	result := NewReporter(Options{MinAbsentDays: 3}).Run(attendance, nil)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "S4", result.Rows[0].StudentID)
}

func TestReporterUsesLatestStreakOnly(t *testing.T) {
	attendance := absentRun("S1", "2024-01-01", 6)
	attendance = append(attendance, rec("S1", "2024-01-07", models.AttendanceStatusPresent))
	attendance = append(attendance, absentRun("S1", "2024-01-08", 5)...)
	roster := []models.Student{{StudentID: "S1", StudentName: "Alice", ParentEmail: "alice@example.com"}}

	result := NewReporter(Options{}).Run(attendance, roster)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, day("2024-01-08"), result.Rows[0].AbsenceStartDate)
	assert.Equal(t, 5, result.Rows[0].TotalAbsentDays)
}

// The latest streak is chosen before the length filter, so a long early
// streak followed by a short recent one reports nothing.
func TestReporterShortLatestStreakSuppressesEarlierOne(t *testing.T) {
	attendance := absentRun("S1", "2024-01-01", 6)
	attendance = append(attendance, rec("S1", "2024-01-07", models.AttendanceStatusPresent))
	attendance = append(attendance, absentRun("S1", "2024-01-08", 2)...)

	result := NewReporter(Options{}).Run(attendance, nil)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 2, result.Summary.StreaksDetected)
}

func TestReporterNullsForInvalidOrMissingContact(t *testing.T) {
	attendance := append(absentRun("S1", "2024-01-01", 4), absentRun("S2", "2024-01-01", 4)...)
	roster := []models.Student{
		{StudentID: "S1", StudentName: "Alice", ParentEmail: "1alice@example.com"},
	}

	result := NewReporter(Options{}).Run(attendance, roster)
	require.Len(t, result.Rows, 2)
	for _, row := range result.Rows {
		assert.Nil(t, row.Email, row.StudentID)
		assert.Nil(t, row.Msg, row.StudentID)
	}
	assert.Equal(t, 1, result.Summary.InvalidEmails)
	assert.Equal(t, 1, result.Summary.UnmatchedStudents)
	assert.Equal(t, 0, result.Summary.Notifications)
}

func TestReporterDuplicateRosterFirstWins(t *testing.T) {
	attendance := absentRun("S1", "2024-01-01", 4)
	roster := []models.Student{
		{StudentID: "S1", StudentName: "First", ParentEmail: "first@example.com"},
		{StudentID: "S1", StudentName: "Second", ParentEmail: "second@example.com"},
	}

	result := NewReporter(Options{}).Run(attendance, roster)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "first@example.com", *result.Rows[0].Email)
	assert.Equal(t, 1, result.Summary.DuplicateRoster)
}

func TestReporterEmptyInput(t *testing.T) {
	result := NewReporter(Options{}).Run(nil, nil)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestReporterDeterministicAcrossInputOrder(t *testing.T) {
	attendance := absentRun("S1", "2024-01-01", 5)
	attendance = append(attendance, absentRun("S2", "2024-02-01", 7)...)
	attendance = append(attendance, rec("S2", "2024-02-08", models.AttendanceStatusPresent))
	attendance = append(attendance, absentRun("S3", "2024-03-01", 4)...)
	roster := []models.Student{
		{StudentID: "S3", StudentName: "Cara", ParentEmail: "cara@example.com"},
		{StudentID: "S1", StudentName: "Alice", ParentEmail: "alice@example.com"},
	}

	reporter := NewReporter(Options{})
	expected := reporter.Run(attendance, roster)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]models.AttendanceRecord(nil), attendance...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, expected, reporter.Run(shuffled, roster))
	}
	require.Len(t, expected.Rows, 3)
	assert.Equal(t, []string{"S1", "S2", "S3"}, []string{expected.Rows[0].StudentID, expected.Rows[1].StudentID, expected.Rows[2].StudentID})
}
