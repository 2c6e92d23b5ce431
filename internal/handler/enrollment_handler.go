package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/service"
	appErrors "github.com/noah-isme/lms-enroll-api/pkg/errors"
	"github.com/noah-isme/lms-enroll-api/pkg/response"
)

// admissionMessages translates rejection kinds into user-facing text. The
// service layer reports kinds only; wording lives here.
var admissionMessages = map[models.EnrollmentErrorKind]string{
	models.ErrKindMissingParameters: "enrollment parameters are required",
	models.ErrKindMissingUserID:     "user_id is required",
	models.ErrKindBadType:           "invalid enrollment type",
	models.ErrKindBadRole:           "enrollment role not found",
	models.ErrKindInactiveRole:      "enrollment role is inactive",
	models.ErrKindBaseTypeMismatch:  "the role's base type does not match the requested type",
	models.ErrKindConcludedCourse:   "can't add an enrollment to a concluded course",
	models.ErrKindInvalidSelfCode:   "invalid self enrollment code",
	models.ErrKindNotSelfUser:       "self enrollment requires the current user",
	models.ErrKindInvalidTransition: "enrollment cannot make that state change",
}

func respondEnrollmentError(c *gin.Context, err error) {
	var admission *service.AdmissionError
	if errors.As(err, &admission) {
		details := make([]string, 0, len(admission.Kinds))
		for _, kind := range admission.Kinds {
			msg, ok := admissionMessages[kind]
			if !ok {
				msg = string(kind)
			}
			details = append(details, msg)
		}
		response.Error(c, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "enrollment rejected"), details))
		return
	}
	response.Error(c, err)
}

type enrollmentService interface {
	List(ctx context.Context, req models.ListingRequest, actor *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error)
	Create(ctx context.Context, courseID, sectionID string, req service.CreateEnrollmentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	Transition(ctx context.Context, courseID, enrollmentID, rawTask string, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	SectionCourse(ctx context.Context, sectionID string) (*models.CourseSection, error)
}

type rosterExporter interface {
	Export(ctx context.Context, courseID string, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

// EnrollmentHandler exposes the enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	exports     rosterExporter
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, exports rosterExporter) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exports: exports}
}

func listingRequestFromQuery(c *gin.Context) models.ListingRequest {
	req := models.ListingRequest{
		Types:  c.QueryArray("type[]"),
		Roles:  c.QueryArray("role[]"),
		States: c.QueryArray("state[]"),
	}
	if len(req.Types) == 0 {
		req.Types = c.QueryArray("type")
	}
	if len(req.Roles) == 0 {
		req.Roles = c.QueryArray("role")
	}
	if len(req.States) == 0 {
		req.States = c.QueryArray("state")
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("per_page", "20")); err == nil {
		req.PageSize = size
	}
	return req
}

// ListByCourse godoc
// @Summary List course enrollments
// @Tags Enrollments
// @Produce json
// @Param course_id path string true "Course ID"
// @Param type[] query []string false "Filter by enrollment type"
// @Param role[] query []string false "Filter by role name"
// @Param state[] query []string false "Filter by workflow state"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{course_id}/enrollments [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	req := listingRequestFromQuery(c)
	req.Scope = models.ScopeCourse
	req.CourseID = c.Param("course_id")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// ListBySection godoc
// @Summary List section enrollments
// @Tags Enrollments
// @Produce json
// @Param section_id path string true "Section ID"
// @Param type[] query []string false "Filter by enrollment type"
// @Param role[] query []string false "Filter by role name"
// @Param state[] query []string false "Filter by workflow state"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sections/{section_id}/enrollments [get]
func (h *EnrollmentHandler) ListBySection(c *gin.Context) {
	section, err := h.enrollments.SectionCourse(c.Request.Context(), c.Param("section_id"))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}

	req := listingRequestFromQuery(c)
	req.Scope = models.ScopeSection
	req.CourseID = section.CourseID
	req.SectionID = section.ID

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// ListByUser godoc
// @Summary List a user's enrollments
// @Tags Enrollments
// @Produce json
// @Param user_id path string true "User ID or the literal self"
// @Param state[] query []string false "Filter by workflow state"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{user_id}/enrollments [get]
func (h *EnrollmentHandler) ListByUser(c *gin.Context) {
	req := listingRequestFromQuery(c)
	req.Scope = models.ScopeUser
	req.UserID = c.Param("user_id")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// CreateInCourse godoc
// @Summary Enroll a user in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param course_id path string true "Course ID"
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{course_id}/enrollments [post]
func (h *EnrollmentHandler) CreateInCourse(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), c.Param("course_id"), "", req, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.Created(c, enrollment)
}

// CreateInSection godoc
// @Summary Enroll a user in a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param section_id path string true "Section ID"
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sections/{section_id}/enrollments [post]
func (h *EnrollmentHandler) CreateInSection(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.enrollments.SectionCourse(c.Request.Context(), c.Param("section_id"))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), section.CourseID, section.ID, req, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Transition godoc
// @Summary Conclude or delete an enrollment
// @Tags Enrollments
// @Produce json
// @Param course_id path string true "Course ID"
// @Param id path string true "Enrollment ID"
// @Param task query string false "conclude or delete" default(conclude)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{course_id}/enrollments/{id} [delete]
func (h *EnrollmentHandler) Transition(c *gin.Context) {
	enrollment, err := h.enrollments.Transition(
		c.Request.Context(),
		c.Param("course_id"),
		c.Param("id"),
		c.Query("task"),
		claimsFromContext(c),
	)
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ExportRoster godoc
// @Summary Export the course roster
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Param course_id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /courses/{course_id}/enrollments/export [get]
func (h *EnrollmentHandler) ExportRoster(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.Export(c.Request.Context(), c.Param("course_id"), format, claimsFromContext(c))
	if err != nil {
		respondEnrollmentError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
