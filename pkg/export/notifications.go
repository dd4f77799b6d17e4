package export

import (
	"strconv"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

// NotificationHeaders is the column order of an absence alert export.
var NotificationHeaders = []string{
	"student_id",
	"absence_start_date",
	"absence_end_date",
	"total_absent_days",
	"email",
	"msg",
}

// NotificationDataset converts alert rows; null email/msg become empty cells.
func NotificationDataset(rows []models.NotificationRow) Dataset {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"student_id":         row.StudentID,
			"absence_start_date": row.AbsenceStartDate.Format(models.DateLayout),
			"absence_end_date":   row.AbsenceEndDate.Format(models.DateLayout),
			"total_absent_days":  strconv.Itoa(row.TotalAbsentDays),
			"email":              deref(row.Email),
			"msg":                deref(row.Msg),
		})
	}
	return Dataset{Headers: NotificationHeaders, Rows: data}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
