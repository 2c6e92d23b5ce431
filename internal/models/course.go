package models

import "time"

// CourseState represents the publication lifecycle of a course.
type CourseState string

// Possible course workflow states.
const (
	CourseStateUnpublished CourseState = "unpublished"
	CourseStateAvailable   CourseState = "available"
	CourseStateCompleted   CourseState = "completed"
	CourseStateDeleted     CourseState = "deleted"
)

// Course owns sections and carries the conclusion status that gates admission.
type Course struct {
	ID                 string      `db:"id" json:"id"`
	AccountID          string      `db:"account_id" json:"account_id"`
	RootAccountID      string      `db:"root_account_id" json:"root_account_id"`
	Name               string      `db:"name" json:"name"`
	WorkflowState      CourseState `db:"workflow_state" json:"workflow_state"`
	StartAt            *time.Time  `db:"start_at" json:"start_at,omitempty"`
	ConcludeAt         *time.Time  `db:"conclude_at" json:"end_at,omitempty"`
	RestrictToDates    bool        `db:"restrict_enrollments_to_course_dates" json:"restrict_enrollments_to_course_dates"`
	SelfEnrollment     bool        `db:"self_enrollment" json:"self_enrollment"`
	SelfEnrollmentCode *string     `db:"self_enrollment_code" json:"-"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// Completed reports whether the course has been hard-concluded.
func (c Course) Completed() bool {
	return c.WorkflowState == CourseStateCompleted
}

// SoftConcluded reports whether the course end date (when enforced) has
// passed. Hard conclusion is covered by Completed.
func (c Course) SoftConcluded(now time.Time) bool {
	if !c.RestrictToDates || c.ConcludeAt == nil {
		return false
	}
	return now.After(*c.ConcludeAt)
}

// Published reports whether the course is open to participants.
func (c Course) Published() bool {
	return c.WorkflowState == CourseStateAvailable
}

// SectionState represents a section's lifecycle.
type SectionState string

// Possible section workflow states.
const (
	SectionStateActive  SectionState = "active"
	SectionStateDeleted SectionState = "deleted"
)

// CourseSection belongs to exactly one course and scopes enrollments.
type CourseSection struct {
	ID             string       `db:"id" json:"id"`
	CourseID       string       `db:"course_id" json:"course_id"`
	Name           string       `db:"name" json:"name"`
	DefaultSection bool         `db:"default_section" json:"default_section"`
	WorkflowState  SectionState `db:"workflow_state" json:"workflow_state"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
