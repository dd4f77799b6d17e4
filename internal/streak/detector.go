// Package streak finds runs of consecutive absent days per student and turns
// the latest long run into a parent notification.
package streak

import (
	"sort"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

// Detect returns every absence streak in records, ordered by student and start date.
//
// A streak only grows while the student's next record falls on the following
// calendar day and is itself absent. A missing date or any non-absent record
// closes the open streak.
func Detect(records []models.AttendanceRecord) []models.AbsenceStreak {
	byStudent := partition(records)

	studentIDs := make([]string, 0, len(byStudent))
	for id := range byStudent {
		studentIDs = append(studentIDs, id)
	}
	sort.Strings(studentIDs)

	streaks := make([]models.AbsenceStreak, 0)
	for _, id := range studentIDs {
		streaks = append(streaks, scan(id, byStudent[id])...)
	}
	return streaks
}

// LatestPerStudent keeps, for each student, the streak with the greatest start date.
func LatestPerStudent(streaks []models.AbsenceStreak) []models.AbsenceStreak {
	latest := make(map[string]models.AbsenceStreak, len(streaks))
	order := make([]string, 0)
	for _, s := range streaks {
		current, ok := latest[s.StudentID]
		if !ok {
			order = append(order, s.StudentID)
			latest[s.StudentID] = s
			continue
		}
		if s.StartDate.After(current.StartDate) {
			latest[s.StudentID] = s
		}
	}
	sort.Strings(order)

	result := make([]models.AbsenceStreak, 0, len(order))
	for _, id := range order {
		result = append(result, latest[id])
	}
	return result
}

func partition(records []models.AttendanceRecord) map[string][]models.AttendanceRecord {
	byStudent := make(map[string][]models.AttendanceRecord)
	for _, rec := range records {
		rec.Date = models.DateOnly(rec.Date)
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}
	for _, seq := range byStudent {
		sort.SliceStable(seq, func(i, j int) bool {
			if !seq[i].Date.Equal(seq[j].Date) {
				return seq[i].Date.Before(seq[j].Date)
			}
			return seq[i].Status < seq[j].Status
		})
	}
	return byStudent
}

func scan(studentID string, seq []models.AttendanceRecord) []models.AbsenceStreak {
	var (
		streaks []models.AbsenceStreak
		open    *models.AbsenceStreak
	)
	closeOpen := func() {
		if open != nil {
			streaks = append(streaks, *open)
			open = nil
		}
	}

	for i, rec := range seq {
		if rec.Status != models.AttendanceStatusAbsent {
			closeOpen()
			continue
		}
		adjacent := i > 0 && models.DaysBetween(seq[i-1].Date, rec.Date) == 1
		if open != nil && adjacent {
			open.EndDate = rec.Date
			open.TotalAbsentDays++
			continue
		}
		closeOpen()
		open = &models.AbsenceStreak{
			StudentID:       studentID,
			StartDate:       rec.Date,
			EndDate:         rec.Date,
			TotalAbsentDays: 1,
		}
	}
	closeOpen()
	return streaks
}
