package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/export"
)

// ReportFormat selects the rendering of an exported report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportUserCounter interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
}

type reportProjectCounter interface {
	Statistics(ctx context.Context) (*models.ProjectStatistics, error)
}

type reportEvaluationCounter interface {
	Statistics(ctx context.Context, evaluatorID string) (*models.EvaluationStatistics, error)
}

// ReportService aggregates cross-resource totals and renders exports.
type ReportService struct {
	users       reportUserCounter
	projects    reportProjectCounter
	evaluations reportEvaluationCounter
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(users reportUserCounter, projects reportProjectCounter, evaluations reportEvaluationCounter, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		users:       users,
		projects:    projects,
		evaluations: evaluations,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// General returns platform-wide totals.
func (s *ReportService) General(ctx context.Context) (*models.GeneralReport, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}

	projectStats, err := s.projects.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate projects")
	}

	evaluationStats, err := s.evaluations.Statistics(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate evaluations")
	}

	totalUsers := 0
	for _, count := range byRole {
		totalUsers += count
	}

	return &models.GeneralReport{
		TotalUsers:       totalUsers,
		TotalProjects:    projectStats.Total,
		TotalEvaluations: evaluationStats.Total,
		UsersByRole:      byRole,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// Evaluations breaks evaluations down per lifecycle state.
func (s *ReportService) Evaluations(ctx context.Context) (*models.EvaluationsReport, error) {
	stats, err := s.evaluations.Statistics(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate evaluations")
	}
	return &models.EvaluationsReport{
		Total:       stats.Total,
		ByState:     stats.ByState,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ExportGeneral renders the general report as CSV or PDF.
func (s *ReportService) ExportGeneral(ctx context.Context, format ReportFormat) ([]byte, string, error) {
	report, err := s.General(ctx)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Métrica", "Valor"},
		Rows: [][]string{
			{"Total usuarios", strconv.Itoa(report.TotalUsers)},
			{"Total proyectos", strconv.Itoa(report.TotalProjects)},
			{"Total evaluaciones", strconv.Itoa(report.TotalEvaluations)},
		},
	}
	for role, count := range report.UsersByRole {
		dataset.Rows = append(dataset.Rows, []string{fmt.Sprintf("Usuarios %s", role), strconv.Itoa(count)})
	}

	return s.render(dataset, "Reporte general", format)
}

// ExportEvaluations renders the evaluations report as CSV or PDF.
func (s *ReportService) ExportEvaluations(ctx context.Context, format ReportFormat) ([]byte, string, error) {
	report, err := s.Evaluations(ctx)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Estado", "Total"},
	}
	for state, count := range report.ByState {
		dataset.Rows = append(dataset.Rows, []string{string(state), strconv.Itoa(count)})
	}
	dataset.Rows = append(dataset.Rows, []string{"TOTAL", strconv.Itoa(report.Total)})

	return s.render(dataset, "Reporte de evaluaciones", format)
}

func (s *ReportService) render(dataset export.Dataset, title string, format ReportFormat) ([]byte, string, error) {
	switch format {
	case ReportFormatCSV:
		out, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return out, "text/csv", nil
	case ReportFormatPDF:
		out, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}
