package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/models"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
	"github.com/campus-ops/proctor-api/pkg/export"
)

type rosterReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.ProctoringAssignmentDetail, error)
	ListByAssistant(ctx context.Context, assistantID string) ([]models.ProctoringAssignmentDetail, error)
}

type rosterExamFinder interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

// ExportFormat selects the roster download encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// RosterService serves the read side: exam rosters, per-assistant
// assignment lists, and roster exports. Exam rosters are cached in Redis
// until the next mutation invalidates them.
type RosterService struct {
	assignments rosterReader
	exams       rosterExamFinder
	cache       *CacheService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewRosterService wires the read-side service.
func NewRosterService(assignments rosterReader, exams rosterExamFinder, cache *CacheService, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		assignments: assignments,
		exams:       exams,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// GetExamRoster returns the exam's assignments, served from cache when warm.
func (s *RosterService) GetExamRoster(ctx context.Context, examID string) ([]models.ProctoringAssignmentDetail, error) {
	var cached []models.ProctoringAssignmentDetail
	if err := s.cache.GetRoster(ctx, examID, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("roster cache lookup failed", zap.String("exam_id", examID), zap.Error(err))
	}

	if _, err := s.exams.FindByID(ctx, examID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	roster, err := s.assignments.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	s.cache.SetRoster(ctx, examID, roster)
	return roster, nil
}

// ListAssistantAssignments returns the assistant's assignment history,
// newest exam first.
func (s *RosterService) ListAssistantAssignments(ctx context.Context, assistantID string) ([]models.ProctoringAssignmentDetail, error) {
	assignments, err := s.assignments.ListByAssistant(ctx, assistantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return assignments, nil
}

// ExportExamRoster renders the roster as CSV or PDF bytes plus the MIME
// content type to serve them with.
func (s *RosterService) ExportExamRoster(ctx context.Context, examID string, format ExportFormat) ([]byte, string, error) {
	roster, err := s.GetExamRoster(ctx, examID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Assistant", "Email", "Course", "Exam Date", "Status", "Source"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, row := range roster {
		source := "auto"
		if row.IsManual {
			source = "manual"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Assistant": row.AssistantName,
			"Email":     row.AssistantEmail,
			"Course":    row.CourseCode,
			"Exam Date": row.ExamStartsAt.Format("2006-01-02 15:04"),
			"Status":    string(row.Status),
			"Source":    source,
		})
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Proctoring roster %s", examID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
