package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/query"
	appErrors "github.com/noah-isme/lms-enroll-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, spec *query.Spec, page, size int) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindActiveByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateState(ctx context.Context, id string, state models.EnrollmentState) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindSectionByID(ctx context.Context, id string) (*models.CourseSection, error)
	FindActiveSection(ctx context.Context, courseID, sectionID string) (*models.CourseSection, error)
	DefaultSection(ctx context.Context, courseID string) (*models.CourseSection, error)
	FindSelfEnrollmentCourse(ctx context.Context, rootAccountID, code string) (*models.Course, error)
}

type selfEnrollmentWriter interface {
	UpdateSelfEnrollment(ctx context.Context, id, code string) error
}

// AdmissionError carries every rejection reason for one admission or
// transition attempt so the caller can correct all problems at once.
type AdmissionError struct {
	Kinds []models.EnrollmentErrorKind
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	parts := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		parts[i] = string(k)
	}
	return "enrollment rejected: " + strings.Join(parts, ", ")
}

// CreateEnrollmentRequest describes an enrollment creation payload.
type CreateEnrollmentRequest struct {
	UserID             string `json:"user_id"`
	Type               string `json:"type"`
	Role               string `json:"role"`
	EnrollmentState    string `json:"enrollment_state" validate:"omitempty,oneof=invited active"`
	CourseSectionID    string `json:"course_section_id"`
	LimitPrivileges    bool   `json:"limit_privileges_to_course_section"`
	Notify             bool   `json:"notify"`
	SelfEnrollmentCode string `json:"self_enrollment_code"`
}

func (r CreateEnrollmentRequest) blank() bool {
	return r == CreateEnrollmentRequest{}
}

// EnrollmentService orchestrates enrollment admission, listing, lifecycle
// transitions and self-enrollment.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	users     selfEnrollmentWriter
	resolver  *RoleResolver
	authz     AuthorizationPort
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, users selfEnrollmentWriter, resolver *RoleResolver, authz AuthorizationPort, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		users:     users,
		resolver:  resolver,
		authz:     authz,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// rosterCachePrefix namespaces cached listing payloads per course so writes
// can invalidate every cached page and filter combination at once.
func rosterCachePrefix(courseID string) string {
	return "roster:" + courseID
}

type cachedListing struct {
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
	Total       int                       `json:"total"`
}

func listingCacheKey(req models.ListingRequest, actorID string) string {
	return fmt.Sprintf("%s:%s:%s:t=%s;r=%s;s=%s:p=%d:n=%d:a=%s",
		rosterCachePrefix(req.CourseID), req.Scope, req.SectionID,
		strings.Join(sorted(req.Types), ","),
		strings.Join(sorted(req.Roles), ","),
		strings.Join(sorted(req.States), ","),
		req.Page, req.PageSize, actorID)
}

func sorted(vals []string) []string {
	out := append([]string(nil), vals...)
	sort.Strings(out)
	return out
}

const (
	defaultListingPageSize = 20
	maxListingPageSize     = 100
)

// normalizePaging clamps the requested page window once, so the repository
// call, the cache key and the pagination metadata all agree.
func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxListingPageSize {
		size = defaultListingPageSize
	}
	return page, size
}

// List returns the permission-scoped, filtered, ordered enrollments for one
// of the three listing entry points.
func (s *EnrollmentService) List(ctx context.Context, req models.ListingRequest, actor *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error) {
	req.Page, req.PageSize = normalizePaging(req.Page, req.PageSize)

	var spec *query.Spec
	var err error

	switch req.Scope {
	case models.ScopeCourse, models.ScopeSection:
		spec, err = s.courseListingSpec(ctx, req, actor)
	case models.ScopeUser:
		spec, err = s.userListingSpec(ctx, req, actor)
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown listing scope")
	}
	if err != nil {
		return nil, nil, err
	}

	// Only course-scoped listings are cached; their keys share a per-course
	// prefix that enrollment writes invalidate.
	cacheable := s.cache != nil && req.Scope != models.ScopeUser
	var cacheKey string
	if cacheable {
		actorID := ""
		if actor != nil {
			actorID = actor.UserID
		}
		cacheKey = listingCacheKey(req, actorID)
		var cached cachedListing
		if hit, cacheErr := s.cache.Get(ctx, cacheKey, &cached); cacheErr == nil && hit {
			return cached.Enrollments, s.paginate(req, cached.Total), nil
		}
	}

	enrollments, total, err := s.repo.List(ctx, spec, req.Page, req.PageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, cachedListing{Enrollments: enrollments, Total: total}, 0); err != nil {
			s.logger.Warn("failed to cache roster listing", zap.Error(err))
		}
	}

	return enrollments, s.paginate(req, total), nil
}

// paginate assumes req went through normalizePaging already.
func (s *EnrollmentService) paginate(req models.ListingRequest, total int) *models.Pagination {
	return &models.Pagination{Page: req.Page, PageSize: req.PageSize, TotalCount: total}
}

// courseListingSpec gates and scopes course- and section-scoped listings.
func (s *EnrollmentService) courseListingSpec(ctx context.Context, req models.ListingRequest, actor *models.JWTClaims) (*query.Spec, error) {
	allowed, err := s.authz.CanViewRoster(ctx, actor, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster permission")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to read the course roster")
	}

	spec := query.EnrollmentConditions(req, false)
	spec.Where("e.course_id = ?", req.CourseID)
	if len(req.States) == 0 {
		spec.Where("e.workflow_state NOT IN (?)", []models.EnrollmentState{
			models.EnrollmentStateRejected,
			models.EnrollmentStateCompleted,
			models.EnrollmentStateDeleted,
			models.EnrollmentStateInactive,
		})
	}
	return spec, nil
}

// userListingSpec covers both the self and other-user listing rules.
func (s *EnrollmentService) userListingSpec(ctx context.Context, req models.ListingRequest, actor *models.JWTClaims) (*query.Spec, error) {
	targetID := req.UserID
	self := actor != nil && (targetID == models.SelfUserID || targetID == actor.UserID)
	if self {
		targetID = actor.UserID
		// A user reads their own enrollments without any roster check, with
		// course-publication-aware state classification.
		spec := query.EnrollmentConditions(req, true)
		spec.Where("e.user_id = ?", targetID)
		if len(req.States) == 0 {
			current := query.CurrentAndInvited()
			spec.Where(current.Expr, current.Args...)
		}
		return spec, nil
	}

	approved, err := s.authz.ApprovedRootAccounts(ctx, actor, targetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve account permissions")
	}
	if len(approved) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to read this user's enrollments")
	}

	spec := query.EnrollmentConditions(req, false)
	spec.Where("e.user_id = ?", targetID)
	spec.Where("e.root_account_id IN (?)", approved)
	if len(req.States) == 0 {
		// Literal states on purpose: unpublished courses stay hidden from
		// other readers.
		spec.Where("e.workflow_state IN (?)", []models.EnrollmentState{
			models.EnrollmentStateActive,
			models.EnrollmentStateInvited,
		})
	}
	return spec, nil
}

// Create admits a new enrollment into a course. sectionID carries the section
// implied by a section-scoped endpoint and overrides the payload's section.
func (s *EnrollmentService) Create(ctx context.Context, courseID, sectionID string, req CreateEnrollmentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment payload")
	}

	if req.SelfEnrollmentCode != "" {
		return s.SelfEnroll(ctx, course, req, actor)
	}

	var kinds []models.EnrollmentErrorKind
	var resolved ResolvedRole

	if req.blank() {
		kinds = append(kinds, models.ErrKindMissingParameters)
	} else {
		var resolveKinds []models.EnrollmentErrorKind
		resolved, resolveKinds, err = s.resolver.Resolve(ctx, course.AccountID, req.Type, req.Role)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role")
		}
		kinds = append(kinds, resolveKinds...)

		if req.UserID == "" {
			kinds = append(kinds, models.ErrKindMissingUserID)
		}
	}

	if course.Completed() || course.SoftConcluded(nowUTC()) {
		kinds = append(kinds, models.ErrKindConcludedCourse)
	}
	if len(kinds) > 0 {
		return nil, &AdmissionError{Kinds: kinds}
	}

	allowed, err := s.authz.CanCreateEnrollment(ctx, actor, course, resolved.Type)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment permission")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to create this enrollment")
	}

	// A section-scoped endpoint overrides any requested section.
	if sectionID != "" {
		req.CourseSectionID = sectionID
	}
	resolvedSectionID, err := s.resolveSection(ctx, course.ID, req.CourseSectionID)
	if err != nil {
		return nil, err
	}

	state := models.EnrollmentStateInvited
	if models.EnrollmentState(req.EnrollmentState) == models.EnrollmentStateActive {
		state = models.EnrollmentStateActive
	}

	enrollment := &models.Enrollment{
		UserID:          req.UserID,
		CourseID:        course.ID,
		CourseSectionID: resolvedSectionID,
		RootAccountID:   course.RootAccountID,
		Type:            resolved.Type,
		WorkflowState:   state,
		LimitPrivileges: req.LimitPrivileges,
		NoNotify:        !req.Notify,
	}
	if resolved.RoleName != "" {
		enrollment.RoleName = &resolved.RoleName
	}

	// Stacked enrollments for the same user and course are always allowed
	// through the API; no uniqueness check on purpose.
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.invalidateRoster(ctx, course.ID)
	if s.metrics != nil {
		s.metrics.RecordEnrollmentOperation("create")
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// SectionCourse resolves the section id of a section-scoped endpoint to its
// section and owning course id.
func (s *EnrollmentService) SectionCourse(ctx context.Context, sectionID string) (*models.CourseSection, error) {
	section, err := s.courses.FindSectionByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// resolveSection maps an explicit section id onto an active section of the
// course, or falls back to the course default section when none requested.
func (s *EnrollmentService) resolveSection(ctx context.Context, courseID, sectionID string) (string, error) {
	if sectionID != "" {
		section, err := s.courses.FindActiveSection(ctx, courseID, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		return section.ID, nil
	}

	section, err := s.courses.DefaultSection(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default section")
	}
	return section.ID, nil
}

// Transition concludes or deletes an enrollment within its course context.
func (s *EnrollmentService) Transition(ctx context.Context, courseID, enrollmentID, rawTask string, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if courseID != "" && enrollment.CourseID != courseID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found in this course")
	}

	task := models.ParseTransitionTask(rawTask)

	allowed, err := s.authz.CanTransition(ctx, actor, enrollment, task)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check transition permission")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to "+string(task)+" this enrollment")
	}

	var target models.EnrollmentState
	switch task {
	case models.TaskDelete:
		if enrollment.WorkflowState.Terminal() {
			return nil, &AdmissionError{Kinds: []models.EnrollmentErrorKind{models.ErrKindInvalidTransition}}
		}
		target = models.EnrollmentStateDeleted
	default:
		if !enrollment.WorkflowState.ActiveLike() {
			return nil, &AdmissionError{Kinds: []models.EnrollmentErrorKind{models.ErrKindInvalidTransition}}
		}
		target = models.EnrollmentStateCompleted
	}

	if err := s.repo.UpdateState(ctx, enrollment.ID, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment state")
	}

	s.invalidateRoster(ctx, enrollment.CourseID)
	if s.metrics != nil {
		s.metrics.RecordEnrollmentOperation(string(task))
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// SelfEnroll admits the actor into the course identified by the opaque
// self-enrollment code. The code itself is the authorization token; neither
// role resolution nor the creation capability check applies.
func (s *EnrollmentService) SelfEnroll(ctx context.Context, course *models.Course, req CreateEnrollmentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "self enrollment requires an authenticated user")
	}

	var kinds []models.EnrollmentErrorKind

	resolved, err := s.courses.FindSelfEnrollmentCourse(ctx, course.RootAccountID, req.SelfEnrollmentCode)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve self enrollment code")
	}
	if resolved == nil || resolved.ID != course.ID {
		kinds = append(kinds, models.ErrKindInvalidSelfCode)
	}
	if req.UserID != models.SelfUserID {
		kinds = append(kinds, models.ErrKindNotSelfUser)
	}
	if len(kinds) > 0 {
		return nil, &AdmissionError{Kinds: kinds}
	}

	if err := s.users.UpdateSelfEnrollment(ctx, actor.UserID, req.SelfEnrollmentCode); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to store self enrollment code")
	}

	sectionID, err := s.resolveSection(ctx, course.ID, "")
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		UserID:          actor.UserID,
		CourseID:        course.ID,
		CourseSectionID: sectionID,
		RootAccountID:   course.RootAccountID,
		Type:            models.EnrollmentTypeStudent,
		WorkflowState:   models.EnrollmentStateActive,
		NoNotify:        true,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create self enrollment")
	}

	s.invalidateRoster(ctx, course.ID)
	if s.metrics != nil {
		s.metrics.RecordEnrollmentOperation("self_enroll")
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

func (s *EnrollmentService) invalidateRoster(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, rosterCachePrefix(courseID)); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.String("course_id", courseID), zap.Error(err))
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
