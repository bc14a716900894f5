package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
)

func newClassMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), "Algebra", "MATH101", "faculty-1", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{Name: "Algebra", Code: "MATH101", FacultyID: "faculty-1"}
	err := repo.Create(context.Background(), class)
	require.NoError(t, err)
	assert.NotEmpty(t, class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT id, name, code, faculty_id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryAddStudentIdempotent(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	// Second insert conflicts and affects zero rows; not an error.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, student_id) DO NOTHING")).
		WithArgs("class-1", "student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, student_id) DO NOTHING")).
		WithArgs("class-1", "student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AddStudent(context.Background(), "class-1", "student-1"))
	require.NoError(t, repo.AddStudent(context.Background(), "class-1", "student-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryHasStudent(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT 1 FROM class_students").
		WithArgs("class-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM class_students").
		WithArgs("class-1", "student-2").
		WillReturnError(sql.ErrNoRows)

	enrolled, err := repo.HasStudent(context.Background(), "class-1", "student-1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = repo.HasStudent(context.Background(), "class-1", "student-2")
	require.NoError(t, err)
	assert.False(t, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "code", "faculty_id", "schedule_day", "schedule_time", "created_at"}).
		AddRow("class-1", "Algebra", "MATH101", "faculty-1", nil, nil, time.Now())
	mock.ExpectQuery("JOIN class_students cs ON cs.class_id = c.id").
		WithArgs("student-1").
		WillReturnRows(rows)

	classes, err := repo.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "MATH101", classes[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryRostersByClassIDs(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "id", "name", "email"}).
		AddRow("class-1", "student-1", "Ana", "ana@example.com").
		AddRow("class-1", "student-2", "Ben", "ben@example.com").
		AddRow("class-2", "student-1", "Ana", "ana@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.class_id = ANY($1)")).
		WithArgs(pq.Array([]string{"class-1", "class-2"})).
		WillReturnRows(rows)

	rosters, err := repo.RostersByClassIDs(context.Background(), []string{"class-1", "class-2"})
	require.NoError(t, err)
	assert.Len(t, rosters["class-1"], 2)
	assert.Len(t, rosters["class-2"], 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryRostersByClassIDsEmpty(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rosters, err := repo.RostersByClassIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rosters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE class_id").
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM class_students WHERE class_id").
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM classes WHERE id").
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "class-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascadeMissingClass(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE class_id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM class_students WHERE class_id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM classes WHERE id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
