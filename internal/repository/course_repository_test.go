package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courseRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "account_id", "root_account_id", "name", "workflow_state",
		"start_at", "conclude_at", "restrict_enrollments_to_course_dates",
		"self_enrollment", "self_enrollment_code", "created_at", "updated_at",
	}).AddRow("c-1", "acc-1", "root-1", "Algebra", "available", nil, nil, false, true, "JOIN123", now, now)
}

func sectionRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "course_id", "name", "default_section", "workflow_state", "created_at", "updated_at",
	}).AddRow("s-1", "c-1", "Section A", true, "active", now, now)
}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`FROM courses WHERE id = \$1`).
		WithArgs("c-1").
		WillReturnRows(courseRows())

	course, err := repo.FindByID(context.Background(), "c-1")

	require.NoError(t, err)
	assert.Equal(t, "Algebra", course.Name)
	assert.Equal(t, "root-1", course.RootAccountID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`FROM courses WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindActiveSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`WHERE id = \$1 AND course_id = \$2 AND workflow_state = \$3`).
		WithArgs("s-1", "c-1", "active").
		WillReturnRows(sectionRows())

	section, err := repo.FindActiveSection(context.Background(), "c-1", "s-1")

	require.NoError(t, err)
	assert.Equal(t, "Section A", section.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDefaultSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`default_section = TRUE`).
		WithArgs("c-1", "active").
		WillReturnRows(sectionRows())

	section, err := repo.DefaultSection(context.Background(), "c-1")

	require.NoError(t, err)
	assert.True(t, section.DefaultSection)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindSelfEnrollmentCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`self_enrollment = TRUE AND self_enrollment_code = \$2`).
		WithArgs("root-1", "JOIN123", "deleted").
		WillReturnRows(courseRows())

	course, err := repo.FindSelfEnrollmentCourse(context.Background(), "root-1", "JOIN123")

	require.NoError(t, err)
	assert.Equal(t, "c-1", course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindSelfEnrollmentCourseNoMatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`self_enrollment = TRUE AND self_enrollment_code = \$2`).
		WithArgs("root-1", "NOPE", "deleted").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindSelfEnrollmentCourse(context.Background(), "root-1", "NOPE")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
