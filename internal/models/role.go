package models

import "time"

// RoleState represents the activation state of a custom course role.
type RoleState string

// Possible role workflow states.
const (
	RoleStateActive   RoleState = "active"
	RoleStateInactive RoleState = "inactive"
)

// CourseRole is an account-defined named role layered atop a base enrollment
// type. Looked up by name at admission time; immutable during one decision.
type CourseRole struct {
	ID            string         `db:"id" json:"id"`
	AccountID     string         `db:"account_id" json:"account_id"`
	Name          string         `db:"name" json:"name"`
	BaseRoleType  EnrollmentType `db:"base_role_type" json:"base_role_type"`
	WorkflowState RoleState      `db:"workflow_state" json:"workflow_state"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Active reports whether the role may be assigned to new enrollments.
func (r CourseRole) Active() bool {
	return r.WorkflowState == RoleStateActive
}
