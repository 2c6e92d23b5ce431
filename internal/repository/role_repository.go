package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-enroll-api/internal/models"
)

// RoleRepository provides lookup of account-scoped custom course roles.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetCourseRole returns the named role within an account, any workflow state.
// Activation is the resolver's concern, not the lookup's.
func (r *RoleRepository) GetCourseRole(ctx context.Context, accountID, name string) (*models.CourseRole, error) {
	const query = `SELECT id, account_id, name, base_role_type, workflow_state, created_at, updated_at FROM course_roles WHERE account_id = $1 AND name = $2 LIMIT 1`
	var role models.CourseRole
	if err := r.db.GetContext(ctx, &role, query, accountID, name); err != nil {
		return nil, err
	}
	return &role, nil
}
