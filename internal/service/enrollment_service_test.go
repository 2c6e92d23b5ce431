package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/query"
	appErrors "github.com/noah-isme/lms-enroll-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	listResult  []models.EnrollmentDetail
	listTotal   int
	listErr     error
	lastSpec    *query.Spec
	lastPage    int
	lastSize    int
	byID        map[string]*models.Enrollment
	created     []*models.Enrollment
	createErr   error
	stateByID   map[string]models.EnrollmentState
	updateErr   error
	activeByKey map[string][]models.Enrollment
}

func (m *mockEnrollmentRepo) List(ctx context.Context, spec *query.Spec, page, size int) ([]models.EnrollmentDetail, int, error) {
	m.lastSpec = spec
	m.lastPage = page
	m.lastSize = size
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	offset := (page - 1) * size
	if offset >= len(m.listResult) {
		return nil, m.listTotal, nil
	}
	end := offset + size
	if end > len(m.listResult) {
		end = len(m.listResult)
	}
	return m.listResult[offset:end], m.listTotal, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.byID[id]; ok {
		return &models.EnrollmentDetail{Enrollment: *e}, nil
	}
	for _, e := range m.created {
		if e.ID == id {
			return &models.EnrollmentDetail{Enrollment: *e}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindActiveByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Enrollment, error) {
	return m.activeByKey[userID+"/"+courseID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) UpdateState(ctx context.Context, id string, state models.EnrollmentState) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.stateByID == nil {
		m.stateByID = make(map[string]models.EnrollmentState)
	}
	m.stateByID[id] = state
	if e, ok := m.byID[id]; ok {
		e.WorkflowState = state
	}
	return nil
}

type mockCourseReader struct {
	courses          map[string]*models.Course
	sections         map[string]*models.CourseSection
	defaultSection   *models.CourseSection
	selfEnrollByCode map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockCourseReader) FindSectionByID(ctx context.Context, id string) (*models.CourseSection, error) {
	if s, ok := m.sections[id]; ok {
		return s, nil
	}
	if m.defaultSection != nil && m.defaultSection.ID == id {
		return m.defaultSection, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseReader) FindActiveSection(ctx context.Context, courseID, sectionID string) (*models.CourseSection, error) {
	s, ok := m.sections[sectionID]
	if !ok || s.CourseID != courseID {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockCourseReader) DefaultSection(ctx context.Context, courseID string) (*models.CourseSection, error) {
	if m.defaultSection == nil || m.defaultSection.CourseID != courseID {
		return nil, sql.ErrNoRows
	}
	return m.defaultSection, nil
}

func (m *mockCourseReader) FindSelfEnrollmentCourse(ctx context.Context, rootAccountID, code string) (*models.Course, error) {
	c, ok := m.selfEnrollByCode[rootAccountID+"/"+code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type mockSelfEnrollWriter struct {
	updatedUserID string
	updatedCode   string
	err           error
}

func (m *mockSelfEnrollWriter) UpdateSelfEnrollment(ctx context.Context, id, code string) error {
	if m.err != nil {
		return m.err
	}
	m.updatedUserID = id
	m.updatedCode = code
	return nil
}

type mockAuthz struct {
	create       bool
	transition   bool
	viewRoster   bool
	rootAccounts []string
	err          error
}

func (m *mockAuthz) CanCreateEnrollment(ctx context.Context, actor *models.JWTClaims, course *models.Course, enrollmentType models.EnrollmentType) (bool, error) {
	return m.create, m.err
}

func (m *mockAuthz) CanTransition(ctx context.Context, actor *models.JWTClaims, enrollment *models.Enrollment, task models.TransitionTask) (bool, error) {
	return m.transition, m.err
}

func (m *mockAuthz) CanViewRoster(ctx context.Context, actor *models.JWTClaims, courseID string) (bool, error) {
	return m.viewRoster, m.err
}

func (m *mockAuthz) ApprovedRootAccounts(ctx context.Context, actor *models.JWTClaims, targetUserID string) ([]string, error) {
	return m.rootAccounts, m.err
}

func activeCourse(id string) *models.Course {
	return &models.Course{
		ID:            id,
		AccountID:     "acc-1",
		RootAccountID: "root-1",
		Name:          "Algebra",
		WorkflowState: models.CourseStateAvailable,
	}
}

func newTestService(repo *mockEnrollmentRepo, courses *mockCourseReader, users *mockSelfEnrollWriter, authz AuthorizationPort) *EnrollmentService {
	resolver := NewRoleResolver(&mockRoleReader{}, nil)
	return NewEnrollmentService(repo, courses, users, resolver, authz, nil, nil, nil, nil)
}

func TestCreateEnrollmentDefaults(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{
		courses:        map[string]*models.Course{"c-1": activeCourse("c-1")},
		defaultSection: &models.CourseSection{ID: "s-1", CourseID: "c-1", DefaultSection: true},
	}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	detail, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{UserID: "u-1"}, adminClaims("u-admin"))

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, models.EnrollmentTypeStudent, created.Type)
	assert.Equal(t, models.EnrollmentStateInvited, created.WorkflowState)
	assert.Equal(t, "s-1", created.CourseSectionID)
	assert.Equal(t, "root-1", created.RootAccountID)
	assert.True(t, created.NoNotify)
	assert.Nil(t, created.RoleName)
	assert.Equal(t, created.ID, detail.ID)
}

func TestCreateEnrollmentActiveState(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": activeCourse("c-1")}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:          "u-1",
		EnrollmentState: "active",
		Notify:          true,
	}, adminClaims("u-admin"))

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.EnrollmentStateActive, repo.created[0].WorkflowState)
	assert.False(t, repo.created[0].NoNotify)
}

func TestCreateEnrollmentBlankRequest(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": activeCourse("c-1")}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{}, adminClaims("u-admin"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindMissingParameters}, admission.Kinds)
	assert.Empty(t, repo.created)
}

func TestCreateEnrollmentAccumulatesRejections(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	course.WorkflowState = models.CourseStateCompleted
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": course}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		Type: "WizardEnrollment",
	}, adminClaims("u-admin"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.ElementsMatch(t, []models.EnrollmentErrorKind{
		models.ErrKindBadType,
		models.ErrKindMissingUserID,
		models.ErrKindConcludedCourse,
	}, admission.Kinds)
}

func TestCreateEnrollmentSoftConcludedCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	course.RestrictToDates = true
	past := time.Now().UTC().Add(-24 * time.Hour)
	course.ConcludeAt = &past
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": course}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{UserID: "u-1"}, adminClaims("u-admin"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindConcludedCourse}, admission.Kinds)
}

func TestCreateEnrollmentValidationBeforeAuthorization(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": activeCourse("c-1")}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: false})

	// An unauthorized actor still sees validation failures first.
	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{}, userClaims("u-1"))
	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)

	// With a valid payload the permission check takes over.
	_, err = svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{UserID: "u-2"}, userClaims("u-1"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCreateEnrollmentSectionOverride(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{
		courses:  map[string]*models.Course{"c-1": activeCourse("c-1")},
		sections: map[string]*models.CourseSection{"s-9": {ID: "s-9", CourseID: "c-1"}},
	}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "s-9", CreateEnrollmentRequest{
		UserID:          "u-1",
		CourseSectionID: "s-other",
	}, adminClaims("u-admin"))

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "s-9", repo.created[0].CourseSectionID)
}

func TestCreateEnrollmentUnknownSection(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": activeCourse("c-1")}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:          "u-1",
		CourseSectionID: "s-missing",
	}, adminClaims("u-admin"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCreateEnrollmentStackedDuplicatesAllowed(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": activeCourse("c-1")}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{UserID: "u-1"}, adminClaims("u-admin"))
		require.NoError(t, err)
	}

	assert.Len(t, repo.created, 2)
}

func TestCreateEnrollmentCourseNotFound(t *testing.T) {
	svc := newTestService(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{create: true})

	_, err := svc.Create(context.Background(), "c-missing", "", CreateEnrollmentRequest{UserID: "u-1"}, adminClaims("u-admin"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestListCourseScopeDefaultStates(t *testing.T) {
	repo := &mockEnrollmentRepo{listResult: []models.EnrollmentDetail{}, listTotal: 0}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{viewRoster: true})

	_, pagination, err := svc.List(context.Background(), models.ListingRequest{
		Scope:    models.ScopeCourse,
		CourseID: "c-1",
	}, adminClaims("u-admin"))

	require.NoError(t, err)
	require.NotNil(t, repo.lastSpec)
	clause, args := repo.lastSpec.Clause()
	assert.Contains(t, clause, "e.course_id = ?")
	assert.Contains(t, clause, "e.workflow_state NOT IN (?)")
	assert.Contains(t, args, "c-1")
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestListClampsOversizedPageSize(t *testing.T) {
	repo := &mockEnrollmentRepo{listTotal: 300}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{viewRoster: true})

	_, pagination, err := svc.List(context.Background(), models.ListingRequest{
		Scope:    models.ScopeCourse,
		CourseID: "c-1",
		PageSize: 150,
	}, adminClaims("u-admin"))

	require.NoError(t, err)
	// The repository window and the echoed metadata must agree.
	assert.Equal(t, 20, repo.lastSize)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 300, pagination.TotalCount)
}

func TestListCourseScopeForbidden(t *testing.T) {
	svc := newTestService(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{viewRoster: false})

	_, _, err := svc.List(context.Background(), models.ListingRequest{
		Scope:    models.ScopeCourse,
		CourseID: "c-1",
	}, userClaims("u-1"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestListSelfScopeCurrentAndInvited(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{})

	_, _, err := svc.List(context.Background(), models.ListingRequest{
		Scope:  models.ScopeUser,
		UserID: models.SelfUserID,
	}, userClaims("u-1"))

	require.NoError(t, err)
	require.NotNil(t, repo.lastSpec)
	clause, args := repo.lastSpec.Clause()
	assert.Contains(t, clause, "e.user_id = ?")
	// Course-aware classification folds the course state into the predicate.
	assert.Contains(t, clause, "c.workflow_state")
	assert.Contains(t, args, "u-1")
}

func TestListOtherUserRequiresApprovedAccounts(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{rootAccounts: nil})

	_, _, err := svc.List(context.Background(), models.ListingRequest{
		Scope:  models.ScopeUser,
		UserID: "u-other",
	}, userClaims("u-1"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestListOtherUserScopedToApprovedAccounts(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{rootAccounts: []string{"root-1"}})

	_, _, err := svc.List(context.Background(), models.ListingRequest{
		Scope:  models.ScopeUser,
		UserID: "u-other",
	}, adminClaims("u-admin"))

	require.NoError(t, err)
	clause, args := repo.lastSpec.Clause()
	assert.Contains(t, clause, "e.root_account_id IN (?)")
	assert.Contains(t, clause, "e.workflow_state IN (?)")
	assert.Contains(t, args, []string{"root-1"})
}

func TestTransitionConclude(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", UserID: "u-1", CourseID: "c-1", Type: models.EnrollmentTypeStudent, WorkflowState: models.EnrollmentStateActive},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: true})

	detail, err := svc.Transition(context.Background(), "c-1", "e-1", "", adminClaims("u-admin"))

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateCompleted, repo.stateByID["e-1"])
	assert.Equal(t, models.EnrollmentStateCompleted, detail.WorkflowState)
}

func TestTransitionDelete(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", UserID: "u-1", CourseID: "c-1", Type: models.EnrollmentTypeStudent, WorkflowState: models.EnrollmentStateInvited},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: true})

	_, err := svc.Transition(context.Background(), "c-1", "e-1", "delete", adminClaims("u-admin"))

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateDeleted, repo.stateByID["e-1"])
}

func TestTransitionConcludeFromCompletedRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", CourseID: "c-1", Type: models.EnrollmentTypeStudent, WorkflowState: models.EnrollmentStateCompleted},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: true})

	_, err := svc.Transition(context.Background(), "c-1", "e-1", "conclude", adminClaims("u-admin"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindInvalidTransition}, admission.Kinds)
	assert.Empty(t, repo.stateByID)
}

func TestTransitionDeleteIsTerminal(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", CourseID: "c-1", Type: models.EnrollmentTypeStudent, WorkflowState: models.EnrollmentStateDeleted},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: true})

	_, err := svc.Transition(context.Background(), "c-1", "e-1", "delete", adminClaims("u-admin"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindInvalidTransition}, admission.Kinds)
}

func TestTransitionWrongCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", CourseID: "c-1", WorkflowState: models.EnrollmentStateActive},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: true})

	_, err := svc.Transition(context.Background(), "c-other", "e-1", "", adminClaims("u-admin"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTransitionForbidden(t *testing.T) {
	repo := &mockEnrollmentRepo{byID: map[string]*models.Enrollment{
		"e-1": {ID: "e-1", CourseID: "c-1", WorkflowState: models.EnrollmentStateActive},
	}}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{transition: false})

	_, err := svc.Transition(context.Background(), "c-1", "e-1", "delete", userClaims("u-1"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSelfEnrollHappyPath(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	course.SelfEnrollment = true
	courses := &mockCourseReader{
		courses:          map[string]*models.Course{"c-1": course},
		defaultSection:   &models.CourseSection{ID: "s-1", CourseID: "c-1", DefaultSection: true},
		selfEnrollByCode: map[string]*models.Course{"root-1/CODE123": course},
	}
	users := &mockSelfEnrollWriter{}
	// No creation permission needed; the code authorizes the actor.
	svc := newTestService(repo, courses, users, &mockAuthz{create: false})

	detail, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:             models.SelfUserID,
		SelfEnrollmentCode: "CODE123",
	}, userClaims("u-9"))

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, "u-9", created.UserID)
	assert.Equal(t, models.EnrollmentTypeStudent, created.Type)
	assert.Equal(t, models.EnrollmentStateActive, created.WorkflowState)
	assert.Equal(t, "s-1", created.CourseSectionID)
	assert.Equal(t, "u-9", users.updatedUserID)
	assert.Equal(t, "CODE123", users.updatedCode)
	assert.Equal(t, created.ID, detail.ID)
}

func TestSelfEnrollBadCode(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	courses := &mockCourseReader{courses: map[string]*models.Course{"c-1": course}}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:             models.SelfUserID,
		SelfEnrollmentCode: "WRONG",
	}, userClaims("u-9"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindInvalidSelfCode}, admission.Kinds)
	assert.Empty(t, repo.created)
}

func TestSelfEnrollRequiresSelfSentinel(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	courses := &mockCourseReader{
		courses:          map[string]*models.Course{"c-1": course},
		selfEnrollByCode: map[string]*models.Course{"root-1/CODE123": course},
	}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:             "u-someone-else",
		SelfEnrollmentCode: "CODE123",
	}, userClaims("u-9"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Equal(t, []models.EnrollmentErrorKind{models.ErrKindNotSelfUser}, admission.Kinds)
}

func TestSelfEnrollCodeStoreFailure(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	course.SelfEnrollment = true
	courses := &mockCourseReader{
		courses:          map[string]*models.Course{"c-1": course},
		defaultSection:   &models.CourseSection{ID: "s-1", CourseID: "c-1", DefaultSection: true},
		selfEnrollByCode: map[string]*models.Course{"root-1/CODE123": course},
	}
	users := &mockSelfEnrollWriter{err: errors.New("self_enrollment_code constraint")}
	svc := newTestService(repo, courses, users, &mockAuthz{})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:             models.SelfUserID,
		SelfEnrollmentCode: "CODE123",
	}, userClaims("u-9"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestSelfEnrollCodeForDifferentCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	course := activeCourse("c-1")
	other := activeCourse("c-2")
	courses := &mockCourseReader{
		courses:          map[string]*models.Course{"c-1": course},
		selfEnrollByCode: map[string]*models.Course{"root-1/CODE123": other},
	}
	svc := newTestService(repo, courses, &mockSelfEnrollWriter{}, &mockAuthz{})

	_, err := svc.Create(context.Background(), "c-1", "", CreateEnrollmentRequest{
		UserID:             models.SelfUserID,
		SelfEnrollmentCode: "CODE123",
	}, userClaims("u-9"))

	var admission *AdmissionError
	require.ErrorAs(t, err, &admission)
	assert.Contains(t, admission.Kinds, models.ErrKindInvalidSelfCode)
}

func TestListRepoErrorWrapped(t *testing.T) {
	repo := &mockEnrollmentRepo{listErr: errors.New("connection reset")}
	svc := newTestService(repo, &mockCourseReader{}, &mockSelfEnrollWriter{}, &mockAuthz{viewRoster: true})

	_, _, err := svc.List(context.Background(), models.ListingRequest{
		Scope:    models.ScopeCourse,
		CourseID: "c-1",
	}, adminClaims("u-admin"))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
