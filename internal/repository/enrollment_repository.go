package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/query"
)

// EnrollmentRepository handles persistence of enrollments. Listing queries
// are driven by query.Spec filter specifications built in the service layer.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// maxListRows is the hard ceiling per List call. API pagination clamps much
// lower in the service layer; bulk readers such as roster export request up
// to this many rows per page.
const maxListRows = 10000

const enrollmentColumns = `e.id, e.user_id, e.course_id, e.course_section_id, e.root_account_id, e.type, e.role_name, e.workflow_state, e.limit_privileges_to_course_section, e.no_notify, e.last_activity_at, e.created_at, e.updated_at`

const enrollmentJoins = `FROM enrollments e
JOIN users u ON u.id = e.user_id
JOIN courses c ON c.id = e.course_id
LEFT JOIN course_sections cs ON cs.id = e.course_section_id`

// List executes a filter specification returning enrollment details plus the
// total row count. The ordering embedded in the spec is applied verbatim.
func (r *EnrollmentRepository) List(ctx context.Context, spec *query.Spec, page, size int) ([]models.EnrollmentDetail, int, error) {
	clause, args := spec.Clause()
	where := ""
	if clause != "" {
		where = " WHERE " + clause
	}

	orderBy := spec.Order()
	if orderBy == "" {
		orderBy = query.EnrollmentOrder + ", " + query.UserOrder
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > maxListRows {
		size = maxListRows
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf(`SELECT %s,
        u.full_name AS user_name, u.sortable_name AS user_sortable_name, u.email AS user_login,
        c.name AS course_name, COALESCE(cs.name, '') AS section_name
        %s%s ORDER BY %s LIMIT %d OFFSET %d`, enrollmentColumns, enrollmentJoins, where, orderBy, size, offset)

	expanded, expandedArgs, err := sqlx.In(listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("expand enrollment filter: %w", err)
	}
	expanded = r.db.Rebind(expanded)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, expanded, expandedArgs...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", enrollmentJoins, where)
	expandedCount, countArgs, err := sqlx.In(countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("expand enrollment count: %w", err)
	}
	expandedCount = r.db.Rebind(expandedCount)

	var total int
	if err := r.db.GetContext(ctx, &total, expandedCount, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with user and course info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        u.full_name AS user_name, u.sortable_name AS user_sortable_name, u.email AS user_login,
        c.name AS course_name, COALESCE(cs.name, '') AS section_name
        %s WHERE e.id = $1`, enrollmentColumns, enrollmentJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByUserAndCourse returns a user's non-deleted enrollments in a
// course, used for capability checks. Stacked enrollments are all returned.
func (r *EnrollmentRepository) FindActiveByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.user_id = $1 AND e.course_id = $2 AND e.workflow_state NOT IN ($3, $4)`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID, courseID, models.EnrollmentStateDeleted, models.EnrollmentStateRejected); err != nil {
		return nil, fmt.Errorf("find course enrollments: %w", err)
	}
	return enrollments, nil
}

// Create persists a new enrollment record. Duplicate (user, course) pairs are
// allowed; stacking enrollments is an expected outcome.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.WorkflowState == "" {
		enrollment.WorkflowState = models.EnrollmentStateInvited
	}
	const query = `INSERT INTO enrollments (id, user_id, course_id, course_section_id, root_account_id, type, role_name, workflow_state, limit_privileges_to_course_section, no_notify, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :course_section_id, :root_account_id, :type, :role_name, :workflow_state, :limit_privileges_to_course_section, :no_notify, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateState updates the workflow state for an enrollment.
func (r *EnrollmentRepository) UpdateState(ctx context.Context, id string, state models.EnrollmentState) error {
	const query = `UPDATE enrollments SET workflow_state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment state: %w", err)
	}
	return nil
}
