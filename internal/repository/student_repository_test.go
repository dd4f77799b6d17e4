package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

func TestStudentRepositoryListRoster(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "parent_email"}).
		AddRow("S1", "Alice", "alice@example.com").
		AddRow("S2", "Bob", "")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE 1=1 AND s.class_id = $1 AND s.id = ANY($2) ORDER BY s.id ASC")).
		WithArgs("X-A", sqlmock.AnyArg()).
		WillReturnRows(rows)

	roster, err := repo.ListRoster(context.Background(), RosterFilter{ClassID: "X-A", StudentIDs: []string{"S1", "S2"}})
	require.NoError(t, err)
	assert.Equal(t, []models.Student{
		{StudentID: "S1", StudentName: "Alice", ParentEmail: "alice@example.com"},
		{StudentID: "S2", StudentName: "Bob"},
	}, roster)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRosterUnfiltered(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE 1=1 ORDER BY s.id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "student_name", "parent_email"}))

	roster, err := repo.ListRoster(context.Background(), RosterFilter{})
	require.NoError(t, err)
	assert.Empty(t, roster)
	require.NoError(t, mock.ExpectationsWereMet())
}
