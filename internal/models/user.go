package models

import "time"

// UserRole represents the account-level roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleUser       UserRole = "USER"
)

// Admin reports whether the role carries account administration rights.
func (r UserRole) Admin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// SelfUserID is the sentinel accepted in place of a user id when a caller
// refers to themselves.
const SelfUserID = "self"

// User represents an application user stored in the users table.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FullName           string     `db:"full_name" json:"name"`
	SortableName       string     `db:"sortable_name" json:"sortable_name"`
	Role               UserRole   `db:"role" json:"role"`
	Active             bool       `db:"active" json:"active"`
	SelfEnrollmentCode *string    `db:"self_enrollment_code" json:"-"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
