package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

// AttendanceRepository reads daily attendance rows for streak evaluation.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

type attendanceRow struct {
	StudentID string    `db:"student_id"`
	Date      time.Time `db:"date"`
	Code      string    `db:"status"`
}

// ListRecords returns attendance rows matching filter ordered by student and date.
// Stored single letter codes are translated to their status names.
func (r *AttendanceRepository) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("da.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("da.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("da.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf(`SELECT da.student_id, da.date, da.status
FROM daily_attendance da
JOIN students s ON s.id = da.student_id
WHERE %s
ORDER BY da.student_id ASC, da.date ASC`, strings.Join(where, " AND "))

	var rows []attendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}

	records := make([]models.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.AttendanceRecord{
			StudentID: row.StudentID,
			Date:      models.DateOnly(row.Date),
			Status:    models.StatusFromCode(strings.TrimSpace(row.Code)),
		})
	}
	return records, nil
}
