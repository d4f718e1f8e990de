package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
	"github.com/noah-isme/course-sales-api/pkg/export"
)

type groupRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.GroupOccupancy, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Roster(ctx context.Context, groupID string) ([]models.RosterEntry, error)
	CourseRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type groupCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RosterExport is a rendered roster file ready to be streamed to the client.
type RosterExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// GroupService answers group and roster queries for staff.
type GroupService struct {
	groups  groupRepository
	courses groupCourseRepository
	csv     csvRenderer
	pdf     pdfRenderer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(groups groupRepository, courses groupCourseRepository, csv csvRenderer, pdf pdfRenderer, metrics *MetricsService, logger *zap.Logger) *GroupService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, courses: courses, csv: csv, pdf: pdf, metrics: metrics, logger: logger}
}

// ListByCourse returns a course's groups with their occupancy.
func (s *GroupService) ListByCourse(ctx context.Context, courseID string) ([]models.GroupOccupancy, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	groups, err := s.groups.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Roster returns the members of a single group.
func (s *GroupService) Roster(ctx context.Context, groupID string) ([]models.RosterEntry, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	start := time.Now()
	roster, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	s.metrics.ObserveDBQuery("group_roster", time.Since(start))
	return roster, nil
}

// ExportCourseRoster renders the full course roster as CSV or PDF.
func (s *GroupService) ExportCourseRoster(ctx context.Context, courseID, format string) (*RosterExport, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	start := time.Now()
	roster, err := s.groups.CourseRoster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
	}
	s.metrics.ObserveDBQuery("course_roster", time.Since(start))

	dataset := buildRosterDataset(roster)
	title := fmt.Sprintf("Roster %s", course.Title)

	var payload []byte
	var contentType string
	switch strings.ToLower(format) {
	case "csv", "":
		format = "csv"
		contentType = "text/csv"
		payload, err = s.csv.Render(dataset)
	case "pdf":
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}

	s.logger.Info("course roster exported",
		zap.String("course_id", courseID),
		zap.String("format", format),
		zap.Int("entries", len(roster)))

	return &RosterExport{
		Filename:    buildRosterFilename(course.Title, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildRosterDataset(roster []models.RosterEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, map[string]string{
			"Group":     fmt.Sprintf("%d", entry.GroupPosition),
			"Full Name": entry.FullName,
			"Email":     entry.Email,
			"Joined At": entry.JoinedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"Group", "Full Name", "Email", "Joined At"},
		Rows:    rows,
	}
}

func buildRosterFilename(courseTitle, format string) string {
	sanitized := strings.ToLower(courseTitle)
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-")
	sanitized = replacer.Replace(sanitized)
	if len(sanitized) > 60 {
		sanitized = sanitized[:60]
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("roster_%s_%s.%s", sanitized, timestamp, format)
}
