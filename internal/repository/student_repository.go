package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

// RosterFilter narrows the roster read.
type RosterFilter struct {
	ClassID    string
	StudentIDs []string
}

// StudentRepository reads the student roster with parent contact details.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListRoster returns roster entries ordered by student id. A NULL parent
// email is returned as an empty string.
func (r *StudentRepository) ListRoster(ctx context.Context, filter RosterFilter) ([]models.Student, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if len(filter.StudentIDs) > 0 {
		where = append(where, fmt.Sprintf("s.id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	}

	query := fmt.Sprintf(`SELECT s.id AS student_id, s.full_name AS student_name, COALESCE(s.parent_email, '') AS parent_email
FROM students s
WHERE %s
ORDER BY s.id ASC`, strings.Join(where, " AND "))

	var roster []models.Student
	if err := r.db.SelectContext(ctx, &roster, query, args...); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}
