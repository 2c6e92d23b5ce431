package query

import (
	"github.com/noah-isme/lms-enroll-api/internal/models"
)

// Column aliases assumed by every enrollment listing query: enrollments e,
// users u, courses c, course_sections cs.
const (
	// EnrollmentOrder is the deterministic listing order: base type first,
	// then the user's sortable name, case-folded.
	EnrollmentOrder = "e.type"
	UserOrder       = "LOWER(u.sortable_name)"
)

// EnrollmentConditions builds the type/role/state/section filter for a
// listing request. Role filters take precedence over type filters and match
// the coalesced role value. State filters match literal workflow states
// unless courseAware is set, in which case each requested state is evaluated
// through a course-publication-aware predicate.
func EnrollmentConditions(req models.ListingRequest, courseAware bool) *Spec {
	s := New()

	if len(req.Roles) > 0 {
		s.Where("COALESCE(e.role_name, e.type) IN (?)", req.Roles)
	} else if len(req.Types) > 0 {
		s.Where("e.type IN (?)", req.Types)
	}

	if len(req.States) > 0 {
		if courseAware {
			preds := make([]Predicate, 0, len(req.States))
			for _, state := range req.States {
				preds = append(preds, CourseStatePredicate(models.EnrollmentState(state)))
			}
			s.Any(preds...)
		} else {
			s.Where("e.workflow_state IN (?)", req.States)
		}
	}

	if req.SectionID != "" {
		s.Where("e.course_section_id = ?", req.SectionID)
	}

	return s.OrderBy(EnrollmentOrder, UserOrder)
}

// CourseStatePredicate classifies an enrollment against a requested state
// taking the owning course's publication state into account. "active" demands
// a published course, "invited" additionally surfaces active enrollments in
// not-yet-published courses, and "completed" covers course-level conclusion
// as well as the literal enrollment state. Other states match literally.
func CourseStatePredicate(state models.EnrollmentState) Predicate {
	switch state {
	case models.EnrollmentStateActive:
		return Predicate{
			Expr: "e.workflow_state = ? AND c.workflow_state = ?",
			Args: []interface{}{models.EnrollmentStateActive, models.CourseStateAvailable},
		}
	case models.EnrollmentStateInvited:
		return Predicate{
			Expr: "(e.workflow_state IN (?) OR (e.workflow_state = ? AND c.workflow_state = ?))",
			Args: []interface{}{
				[]models.EnrollmentState{models.EnrollmentStateInvited, models.EnrollmentStateCreationPending},
				models.EnrollmentStateActive,
				models.CourseStateUnpublished,
			},
		}
	case models.EnrollmentStateCompleted:
		return Predicate{
			Expr: "(e.workflow_state = ? OR (e.workflow_state = ? AND c.workflow_state = ?))",
			Args: []interface{}{
				models.EnrollmentStateCompleted,
				models.EnrollmentStateActive,
				models.CourseStateCompleted,
			},
		}
	default:
		return Predicate{Expr: "e.workflow_state = ?", Args: []interface{}{state}}
	}
}

// CurrentAndInvited is the default classification for a user listing their
// own enrollments with no state filter: anything the course-aware "active" or
// "invited" predicates accept.
func CurrentAndInvited() Predicate {
	active := CourseStatePredicate(models.EnrollmentStateActive)
	invited := CourseStatePredicate(models.EnrollmentStateInvited)
	return Predicate{
		Expr: "(" + active.Expr + ") OR (" + invited.Expr + ")",
		Args: append(append([]interface{}{}, active.Args...), invited.Args...),
	}
}
