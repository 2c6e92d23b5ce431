package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/query"
	"github.com/noah-isme/lms-enroll-api/pkg/export"
	appErrors "github.com/noah-isme/lms-enroll-api/pkg/errors"
)

// ExportFormat names a supported roster export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

type exportCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ExportResult is a rendered roster document ready for download.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// RosterExportService renders a course roster as a downloadable document.
type RosterExportService struct {
	enrollments enrollmentRepository
	courses     exportCourseReader
	authz       AuthorizationPort
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	enabled     bool
}

// NewRosterExportService constructs the export service.
func NewRosterExportService(enrollments enrollmentRepository, courses exportCourseReader, authz AuthorizationPort, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, enabled bool) *RosterExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterExportService{
		enrollments: enrollments,
		courses:     courses,
		authz:       authz,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		enabled:     enabled,
	}
}

const exportPageSize = 10000

// Export renders the course roster in the requested format.
func (s *RosterExportService) Export(ctx context.Context, courseID string, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "roster export is disabled")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	allowed, err := s.authz.CanViewRoster(ctx, actor, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster permission")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to export the course roster")
	}

	spec := query.EnrollmentConditions(models.ListingRequest{}, false)
	spec.Where("e.course_id = ?", course.ID)
	spec.Where("e.workflow_state NOT IN (?)", []models.EnrollmentState{
		models.EnrollmentStateRejected,
		models.EnrollmentStateCompleted,
		models.EnrollmentStateDeleted,
		models.EnrollmentStateInactive,
	})

	// Exports bypass API pagination: keep fetching pages until the reported
	// total is in hand so large rosters are never cut short.
	var enrollments []models.EnrollmentDetail
	for page := 1; ; page++ {
		batch, total, err := s.enrollments.List(ctx, spec, page, exportPageSize)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
		}
		enrollments = append(enrollments, batch...)
		if len(batch) == 0 || len(enrollments) >= total {
			break
		}
	}

	table := export.Table{
		Columns: []string{"Name", "Login", "Type", "Role", "Section", "State", "Last Activity"},
		Rows:    make([][]string, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		lastActivity := ""
		if e.LastActivityAt != nil {
			lastActivity = e.LastActivityAt.UTC().Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			e.UserName,
			e.UserLogin,
			string(e.Type),
			e.Role(),
			e.SectionName,
			string(e.WorkflowState),
			lastActivity,
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(table, fmt.Sprintf("Roster - %s", course.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("roster-%s-%s.pdf", course.ID, stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("roster-%s-%s.csv", course.ID, stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}
