package models

import "time"

// EnrollmentType is one of the five canonical base enrollment types.
type EnrollmentType string

// Canonical enrollment types.
const (
	EnrollmentTypeStudent  EnrollmentType = "StudentEnrollment"
	EnrollmentTypeTeacher  EnrollmentType = "TeacherEnrollment"
	EnrollmentTypeTa       EnrollmentType = "TaEnrollment"
	EnrollmentTypeObserver EnrollmentType = "ObserverEnrollment"
	EnrollmentTypeDesigner EnrollmentType = "DesignerEnrollment"
)

// ValidEnrollmentType reports whether raw names a canonical base type.
func ValidEnrollmentType(raw string) bool {
	switch EnrollmentType(raw) {
	case EnrollmentTypeStudent, EnrollmentTypeTeacher, EnrollmentTypeTa,
		EnrollmentTypeObserver, EnrollmentTypeDesigner:
		return true
	}
	return false
}

// EnrollmentState represents the lifecycle of an enrollment.
type EnrollmentState string

// Possible enrollment workflow states.
const (
	EnrollmentStateCreationPending EnrollmentState = "creation_pending"
	EnrollmentStateInvited         EnrollmentState = "invited"
	EnrollmentStateActive          EnrollmentState = "active"
	EnrollmentStateCompleted       EnrollmentState = "completed"
	EnrollmentStateInactive        EnrollmentState = "inactive"
	EnrollmentStateRejected        EnrollmentState = "rejected"
	EnrollmentStateDeleted         EnrollmentState = "deleted"
)

// ActiveLike reports whether the state permits a conclude transition.
func (s EnrollmentState) ActiveLike() bool {
	switch s {
	case EnrollmentStateActive, EnrollmentStateInvited, EnrollmentStateCreationPending:
		return true
	}
	return false
}

// Terminal reports whether the state admits no further transitions.
func (s EnrollmentState) Terminal() bool {
	return s == EnrollmentStateDeleted
}

// TransitionTask names a lifecycle action on an enrollment.
type TransitionTask string

// Supported lifecycle tasks.
const (
	TaskConclude TransitionTask = "conclude"
	TaskDelete   TransitionTask = "delete"
)

// ParseTransitionTask maps raw input to a task, defaulting to conclude.
func ParseTransitionTask(raw string) TransitionTask {
	if TransitionTask(raw) == TaskDelete {
		return TaskDelete
	}
	return TaskConclude
}

// Enrollment binds a user to a course section with a role and lifecycle state.
// RoleName is set only when an account-level custom course role is in play;
// Type always carries one of the five canonical base types regardless.
type Enrollment struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	CourseID        string          `db:"course_id" json:"course_id"`
	CourseSectionID string          `db:"course_section_id" json:"course_section_id"`
	RootAccountID   string          `db:"root_account_id" json:"root_account_id"`
	Type            EnrollmentType  `db:"type" json:"type"`
	RoleName        *string         `db:"role_name" json:"role,omitempty"`
	WorkflowState   EnrollmentState `db:"workflow_state" json:"enrollment_state"`
	LimitPrivileges bool            `db:"limit_privileges_to_course_section" json:"limit_privileges_to_course_section"`
	NoNotify        bool            `db:"no_notify" json:"-"`
	LastActivityAt  *time.Time      `db:"last_activity_at" json:"last_activity_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Role returns the effective role: the custom role name when present,
// otherwise the base type.
func (e Enrollment) Role() string {
	if e.RoleName != nil && *e.RoleName != "" {
		return *e.RoleName
	}
	return string(e.Type)
}

// EnrollmentDetail enriches Enrollment with user and course info for rendering.
type EnrollmentDetail struct {
	Enrollment
	UserName         string `db:"user_name" json:"user_name"`
	UserSortableName string `db:"user_sortable_name" json:"user_sortable_name"`
	UserLogin        string `db:"user_login" json:"user_login"`
	CourseName       string `db:"course_name" json:"course_name"`
	SectionName      string `db:"section_name" json:"section_name"`
}

// EnrollmentErrorKind enumerates admission and self-enrollment rejection
// reasons. Human-readable text is owned by the boundary layer.
type EnrollmentErrorKind string

// Closed set of enrollment rejection kinds.
const (
	ErrKindMissingParameters EnrollmentErrorKind = "missing_parameters"
	ErrKindMissingUserID     EnrollmentErrorKind = "missing_user_id"
	ErrKindBadType           EnrollmentErrorKind = "bad_type"
	ErrKindBadRole           EnrollmentErrorKind = "bad_role"
	ErrKindInactiveRole      EnrollmentErrorKind = "inactive_role"
	ErrKindBaseTypeMismatch  EnrollmentErrorKind = "base_type_mismatch"
	ErrKindConcludedCourse   EnrollmentErrorKind = "concluded_course"
	ErrKindInvalidSelfCode   EnrollmentErrorKind = "invalid_self_enrollment_code"
	ErrKindNotSelfUser       EnrollmentErrorKind = "not_self_user"
	ErrKindInvalidTransition EnrollmentErrorKind = "invalid_transition"
)
