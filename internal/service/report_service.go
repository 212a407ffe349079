package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/export"
)

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// ReportService builds per-student performance reports.
type ReportService struct {
	repo     gradebookReader
	settings gradingSettingsProvider
	pdf      documentRenderer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo gradebookReader, settings gradingSettingsProvider, pdf documentRenderer, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, settings: settings, pdf: pdf, metrics: metrics, logger: logger}
}

// StudentReport builds the report of one student against the rest of the course.
func (s *ReportService) StudentReport(ctx context.Context, courseID, studentID string) (*dto.StudentReportResponse, error) {
	report, err := s.build(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentReportResponse(report)
	return &resp, nil
}

// StudentReportPDF renders the student report as a PDF and returns it with a download filename.
func (s *ReportService) StudentReportPDF(ctx context.Context, courseID, studentID string) ([]byte, string, error) {
	report, err := s.build(ctx, courseID, studentID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.pdf.RenderDocument(reportDocument(dto.NewStudentReportResponse(report)))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	filename := fmt.Sprintf("%s-%s-report.pdf", slug(report.CourseName), slug(report.StudentID))
	return data, filename, nil
}

func (s *ReportService) build(ctx context.Context, courseID, studentID string) (grading.StudentReport, error) {
	start := time.Now()
	course, records, err := s.repo.Gradebook(ctx, courseID, true)
	s.metrics.ObserveDBQuery("gradebook_history", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grading.StudentReport{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return grading.StudentReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}

	var student *models.StudentScoreRecord
	for i := range records {
		if records[i].StudentID == studentID {
			student = &records[i]
			break
		}
	}
	if student == nil {
		return grading.StudentReport{}, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
	}

	opts := grading.ReportOptions{}
	if s.settings != nil {
		settings, err := s.settings.Grading(ctx)
		if err != nil {
			return grading.StudentReport{}, err
		}
		opts.LetterScale = settings.LetterScale
		opts.NumericScale = settings.NumericScale
	}
	return grading.BuildReport(*student, *course, records, opts), nil
}

func reportDocument(r dto.StudentReportResponse) export.Document {
	overall := grading.NotAvailable
	if r.Overall != nil {
		overall = fmt.Sprintf("%.2f", *r.Overall)
	}
	subtitle := r.CourseName
	if r.Section != "" {
		subtitle += " - " + r.Section
	}

	summary := export.Section{
		Heading: "Summary",
		Lines: []string{
			fmt.Sprintf("Student: %s (%s)", r.StudentName, r.StudentID),
			fmt.Sprintf("Overall: %s    Letter: %s    Numeric: %s", overall, r.LetterGrade, r.NumericGrade),
			fmt.Sprintf("Status: %s    Trend: %s (%+.2f)", r.Status, r.Trend, r.TrendDelta),
		},
	}

	table := export.Dataset{Headers: []string{"Component", "Score", "Class Avg", "Weight %", "Relative %", "Performance"}}
	for _, c := range r.Components {
		table.Rows = append(table.Rows, map[string]string{
			"Component":   c.Component.Label(),
			"Score":       fmt.Sprintf("%.2f", c.Score),
			"Class Avg":   fmt.Sprintf("%.2f", c.ClassAverage),
			"Weight %":    fmt.Sprintf("%.0f", c.WeightPercent),
			"Relative %":  fmt.Sprintf("%.1f", c.RelativePercent),
			"Performance": c.Performance,
		})
	}
	components := export.Section{Heading: "Components", Table: &table}
	if len(table.Rows) == 0 {
		components.Table = nil
		components.Lines = []string{"No graded components yet."}
	}

	labels := func(list []models.Component) string {
		if len(list) == 0 {
			return "none"
		}
		names := make([]string, len(list))
		for i, c := range list {
			names[i] = c.Label()
		}
		return strings.Join(names, ", ")
	}
	analysis := export.Section{
		Heading: "Analysis",
		Lines: []string{
			"Strengths: " + labels(r.Strengths),
			"Areas to improve: " + labels(r.Weaknesses),
		},
	}

	recommendations := export.Section{Heading: "Recommendations"}
	for _, rec := range r.Recommendations {
		recommendations.Lines = append(recommendations.Lines, "- "+rec)
	}

	sections := []export.Section{summary, components, analysis, recommendations}
	if r.Comments != "" {
		sections = append(sections, export.Section{Heading: "Teacher Comments", Lines: []string{r.Comments}})
	}
	return export.Document{Title: "Student Performance Report", Subtitle: subtitle, Sections: sections}
}

// slug lowercases s and keeps only letters, digits and single dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "export"
	}
	return out
}
