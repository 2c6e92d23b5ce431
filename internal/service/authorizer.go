package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-enroll-api/internal/models"
)

// AuthorizationPort answers the capability questions the enrollment flows
// depend on. It is injected so permission semantics stay out of the core
// admission and listing logic.
type AuthorizationPort interface {
	// CanCreateEnrollment reports whether the actor may create an enrollment
	// of the given type in the course.
	CanCreateEnrollment(ctx context.Context, actor *models.JWTClaims, course *models.Course, enrollmentType models.EnrollmentType) (bool, error)
	// CanTransition reports whether the actor may run the given lifecycle
	// task against the enrollment.
	CanTransition(ctx context.Context, actor *models.JWTClaims, enrollment *models.Enrollment, task models.TransitionTask) (bool, error)
	// CanViewRoster reports whether the actor may read the course roster.
	CanViewRoster(ctx context.Context, actor *models.JWTClaims, courseID string) (bool, error)
	// ApprovedRootAccounts returns the root accounts shared between actor and
	// target on which the actor holds roster read rights. Empty means the
	// actor may not list the target's enrollments.
	ApprovedRootAccounts(ctx context.Context, actor *models.JWTClaims, targetUserID string) ([]string, error)
}

type actorEnrollmentReader interface {
	FindActiveByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Enrollment, error)
}

type accountAssociationReader interface {
	AssociatedRootAccountIDs(ctx context.Context, userID string) ([]string, error)
}

// RBACAuthorizer derives capabilities from the actor's account-level role and
// their own enrollments in the target course.
type RBACAuthorizer struct {
	enrollments actorEnrollmentReader
	accounts    accountAssociationReader
	logger      *zap.Logger
}

// NewRBACAuthorizer constructs the default authorizer.
func NewRBACAuthorizer(enrollments actorEnrollmentReader, accounts accountAssociationReader, logger *zap.Logger) *RBACAuthorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RBACAuthorizer{enrollments: enrollments, accounts: accounts, logger: logger}
}

// teaching reports whether any active enrollment carries a teaching type.
func teaching(enrollments []models.Enrollment) bool {
	for _, e := range enrollments {
		if !e.WorkflowState.ActiveLike() {
			continue
		}
		if e.Type == models.EnrollmentTypeTeacher || e.Type == models.EnrollmentTypeTa {
			return true
		}
	}
	return false
}

// studentLevel are the types a course teacher may manage without account
// administration rights.
func studentLevel(t models.EnrollmentType) bool {
	return t == models.EnrollmentTypeStudent || t == models.EnrollmentTypeObserver
}

// CanCreateEnrollment grants admins everything; course teachers and TAs may
// add students and observers.
func (a *RBACAuthorizer) CanCreateEnrollment(ctx context.Context, actor *models.JWTClaims, course *models.Course, enrollmentType models.EnrollmentType) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Role.Admin() {
		return true, nil
	}
	if !studentLevel(enrollmentType) {
		return false, nil
	}
	own, err := a.enrollments.FindActiveByUserAndCourse(ctx, actor.UserID, course.ID)
	if err != nil {
		return false, err
	}
	return teaching(own), nil
}

// CanTransition grants admins both tasks. Course teachers and TAs may
// conclude or delete student-level enrollments; any user may conclude their
// own enrollment but never delete it.
func (a *RBACAuthorizer) CanTransition(ctx context.Context, actor *models.JWTClaims, enrollment *models.Enrollment, task models.TransitionTask) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Role.Admin() {
		return true, nil
	}
	if task == models.TaskConclude && enrollment.UserID == actor.UserID {
		return true, nil
	}
	if !studentLevel(enrollment.Type) {
		return false, nil
	}
	own, err := a.enrollments.FindActiveByUserAndCourse(ctx, actor.UserID, enrollment.CourseID)
	if err != nil {
		return false, err
	}
	return teaching(own), nil
}

// CanViewRoster grants admins and any active course participant except
// observers.
func (a *RBACAuthorizer) CanViewRoster(ctx context.Context, actor *models.JWTClaims, courseID string) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Role.Admin() {
		return true, nil
	}
	own, err := a.enrollments.FindActiveByUserAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		return false, err
	}
	for _, e := range own {
		if e.WorkflowState.ActiveLike() && e.Type != models.EnrollmentTypeObserver {
			return true, nil
		}
	}
	return false, nil
}

// ApprovedRootAccounts intersects the actor's and target's root accounts.
// Only account admins hold roster read rights at the account level, so a
// regular user always receives an empty set for another user.
func (a *RBACAuthorizer) ApprovedRootAccounts(ctx context.Context, actor *models.JWTClaims, targetUserID string) ([]string, error) {
	if actor == nil || !actor.Role.Admin() {
		return nil, nil
	}
	targetAccounts, err := a.accounts.AssociatedRootAccountIDs(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleSuperAdmin {
		return targetAccounts, nil
	}
	actorAccounts, err := a.accounts.AssociatedRootAccountIDs(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(actorAccounts))
	for _, id := range actorAccounts {
		held[id] = struct{}{}
	}
	var approved []string
	for _, id := range targetAccounts {
		if _, ok := held[id]; ok {
			approved = append(approved, id)
		}
	}
	return approved, nil
}
