package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

func TestAttendanceRepositoryListRecordsMapsCodes(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "date", "status"}).
		AddRow("S1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "A").
		AddRow("S1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "H").
		AddRow("S2", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "S").
		AddRow("S2", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "I")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT da.student_id, da.date, da.status FROM daily_attendance da JOIN students s ON s.id = da.student_id WHERE 1=1 AND s.class_id = $1 AND da.date >= $2 AND da.date <= $3")).
		WithArgs("X-A", from, to).
		WillReturnRows(rows)

	records, err := repo.ListRecords(context.Background(), models.AttendanceFilter{ClassID: "X-A", DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, models.AttendanceStatusAbsent, records[0].Status)
	assert.Equal(t, models.AttendanceStatusPresent, records[1].Status)
	assert.Equal(t, models.AttendanceStatusSick, records[2].Status)
	assert.Equal(t, models.AttendanceStatusExcused, records[3].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListRecordsError(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT da.student_id").WithArgs("S9").WillReturnError(errors.New("conn reset"))

	_, err := repo.ListRecords(context.Background(), models.AttendanceFilter{StudentID: "S9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list attendance records")
	require.NoError(t, mock.ExpectationsWereMet())
}
