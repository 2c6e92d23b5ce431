package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-enroll-api/internal/models"
)

// CourseRepository provides read access to courses and their sections.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, account_id, root_account_id, name, workflow_state, start_at, conclude_at, restrict_enrollments_to_course_dates, self_enrollment, self_enrollment_code, created_at, updated_at`

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindSectionByID returns a section regardless of owning course.
func (r *CourseRepository) FindSectionByID(ctx context.Context, id string) (*models.CourseSection, error) {
	const query = `SELECT id, course_id, name, default_section, workflow_state, created_at, updated_at FROM course_sections WHERE id = $1`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindActiveSection resolves a section id against a course's active sections.
func (r *CourseRepository) FindActiveSection(ctx context.Context, courseID, sectionID string) (*models.CourseSection, error) {
	const query = `SELECT id, course_id, name, default_section, workflow_state, created_at, updated_at FROM course_sections WHERE id = $1 AND course_id = $2 AND workflow_state = $3`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, sectionID, courseID, models.SectionStateActive); err != nil {
		return nil, err
	}
	return &section, nil
}

// DefaultSection returns the course's default section.
func (r *CourseRepository) DefaultSection(ctx context.Context, courseID string) (*models.CourseSection, error) {
	const query = `SELECT id, course_id, name, default_section, workflow_state, created_at, updated_at FROM course_sections WHERE course_id = $1 AND default_section = TRUE AND workflow_state = $2 LIMIT 1`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, courseID, models.SectionStateActive); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindSelfEnrollmentCourse resolves a self-enrollment code within a root
// account. No match returns sql.ErrNoRows.
func (r *CourseRepository) FindSelfEnrollmentCourse(ctx context.Context, rootAccountID, code string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE root_account_id = $1 AND self_enrollment = TRUE AND self_enrollment_code = $2 AND workflow_state <> $3 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, rootAccountID, code, models.CourseStateDeleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find self enrollment course: %w", err)
	}
	return &course, nil
}
