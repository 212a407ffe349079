package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/export"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/storage"
)

const (
	columnStudentID   = "Student ID"
	columnStudentName = "Student Name"
	columnFinalGrade  = "Final Grade"
	columnLetterGrade = "Letter Grade"
	columnStatus      = "Status"
	columnComments    = "Comments"
)

type exportStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type tableParser interface {
	Parse(r io.Reader) (export.Dataset, error)
}

type csvCodec interface {
	tableRenderer
	tableParser
}

type xlsxCodec interface {
	titledRenderer
	tableParser
}

// gradeWriter applies one imported row through the same path as manual grade entry.
type gradeWriter interface {
	saveGrades(ctx context.Context, courseID, studentID string, req dto.SaveGradesRequest, actor models.Actor) (*models.StudentScoreRecord, *models.Course, bool, error)
}

// ExportServiceConfig tunes export links and import limits.
type ExportServiceConfig struct {
	DownloadBasePath string
	MaxImportBytes   int64
}

// ExportService renders gradebooks to CSV, PDF or XLSX and imports edited sheets back.
type ExportService struct {
	repo     gradebookReader
	settings gradingSettingsProvider
	grades   gradeWriter
	store    exportStore
	signer   downloadSigner
	csv      csvCodec
	pdf      titledRenderer
	xlsx     xlsxCodec
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ExportServiceConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil codecs fall back to the package exporters.
func NewExportService(repo gradebookReader, settings gradingSettingsProvider, grades gradeWriter, store exportStore, signer downloadSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = "/api/v1/export/"
	}
	if !strings.HasSuffix(cfg.DownloadBasePath, "/") {
		cfg.DownloadBasePath += "/"
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = 5 * 1024 * 1024
	}
	return &ExportService{
		repo:     repo,
		settings: settings,
		grades:   grades,
		store:    store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		xlsx:     export.NewXLSXExporter(),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Export renders the course gradebook, stores it and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, courseID string, req dto.ExportRequest, actor models.Actor) (*dto.ExportResponse, error) {
	format, ok := models.ParseExportFormat(req.Format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	course, records, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	settings, err := s.gradingSettings(ctx)
	if err != nil {
		return nil, err
	}
	dataset := GradebookDataset(*course, records, scalesOf(settings))

	title := course.Name
	if course.Section != "" {
		title += " " + course.Section
	}
	var data []byte
	switch format {
	case models.ExportFormatPDF:
		data, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		data, err = s.xlsx.Render(dataset, title)
	default:
		data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s-gradebook-%s.%s", slug(title), s.now().UTC().Format("20060102-150405"), format)
	relPath, err := s.store.Save(path.Join(course.ID, exportID, filename), data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	s.metrics.ObserveExport(string(format))
	s.logger.Info("gradebook exported",
		zap.String("course_id", course.ID),
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.String("actor", actor.ID),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &dto.ExportResponse{
		ExportID:    exportID,
		Format:      string(format),
		Filename:    filename,
		Rows:        len(dataset.Rows),
		Token:       token,
		DownloadURL: s.cfg.DownloadBasePath + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file, its filename and content type.
func (s *ExportService) Download(ctx context.Context, token string) ([]byte, string, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", "", appErrors.Clone(appErrors.ErrExpired, "download link expired")
		}
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	filename := path.Base(relPath)
	format, ok := models.ParseExportFormat(strings.TrimPrefix(path.Ext(filename), "."))
	if !ok {
		format = models.ExportFormatCSV
	}
	return data, filename, format.ContentType(), nil
}

// Import applies a CSV or XLSX gradebook to the course. Each row is saved like a manual edit;
// rows that fail are reported and do not stop the rest of the import.
func (s *ExportService) Import(ctx context.Context, courseID string, format models.ExportFormat, r io.Reader, actor models.Actor) (*dto.ImportResponse, error) {
	var parser tableParser
	switch format {
	case models.ExportFormatCSV:
		parser = s.csv
	case models.ExportFormatXLSX:
		parser = s.xlsx
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("cannot import %s files", format))
	}

	raw, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxImportBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if int64(len(raw)) > s.cfg.MaxImportBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("import exceeds %d bytes", s.cfg.MaxImportBytes))
	}
	dataset, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to parse gradebook")
	}
	if missing := missingColumns(dataset.Headers); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing columns: "+strings.Join(missing, ", "))
	}

	course, _, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Finalized && !actor.Role.CanOverrideFinalized() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "course is finalized")
	}

	result := &dto.ImportResponse{Errors: []dto.ImportRowError{}}
	for i, row := range dataset.Rows {
		line := i + 2
		studentID := row[columnStudentID]
		result.Processed++
		if studentID == "" {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, Message: "student id is required"})
			continue
		}
		req, err := rowToRequest(row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, StudentID: studentID, Message: err.Error()})
			continue
		}
		_, _, changed, err := s.grades.saveGrades(ctx, course.ID, studentID, req, actor)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, StudentID: studentID, Message: appErrors.FromError(err).Message})
		case changed:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	s.metrics.ObserveImportRows("updated", result.Updated)
	s.metrics.ObserveImportRows("unchanged", result.Unchanged)
	s.metrics.ObserveImportRows("failed", result.Failed)
	s.logger.Info("gradebook imported",
		zap.String("course_id", course.ID),
		zap.String("format", string(format)),
		zap.String("actor", actor.ID),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// GradebookDataset lays out records in the gradebook column order.
// Component scores keep full precision so an exported sheet imports back unchanged; computed columns are rounded.
func GradebookDataset(course models.Course, records []models.StudentScoreRecord, scales dto.GradeScales) export.Dataset {
	dataset := export.Dataset{Headers: append([]string(nil), models.GradebookColumns...)}
	for _, r := range records {
		overall := grading.ComputeWeighted(r.ComponentScores, course.WeightMap)
		finalGrade := ""
		if overall != nil {
			finalGrade = strconv.FormatFloat(grading.Round2(*overall), 'f', 2, 64)
		}
		row := map[string]string{
			columnStudentID:   r.StudentID,
			columnStudentName: r.StudentName,
			columnFinalGrade:  finalGrade,
			columnLetterGrade: grading.ScoreToGrade(overall, scales.Letter),
			columnStatus:      string(r.Status),
			columnComments:    r.Comments,
		}
		for _, c := range models.Components {
			row[c.Label()] = formatScore(r.Get(c))
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}

func (s *ExportService) load(ctx context.Context, courseID string) (*models.Course, []models.StudentScoreRecord, error) {
	course, records, err := s.repo.Gradebook(ctx, courseID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}
	return course, records, nil
}

func (s *ExportService) gradingSettings(ctx context.Context) (models.GradingSettings, error) {
	if s.settings == nil {
		return models.GradingSettings{LetterScale: grading.DefaultLetterScale, NumericScale: grading.DefaultNumericScale}, nil
	}
	return s.settings.Grading(ctx)
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func missingColumns(headers []string) []string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	required := []string{columnStudentID}
	for _, c := range models.Components {
		required = append(required, c.Label())
	}
	required = append(required, columnComments)

	var missing []string
	for _, col := range required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func rowToRequest(row map[string]string) (dto.SaveGradesRequest, error) {
	req := dto.SaveGradesRequest{Comments: row[columnComments]}
	var scores models.ComponentScores
	for _, c := range models.Components {
		raw := strings.TrimSpace(row[c.Label()])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return dto.SaveGradesRequest{}, fmt.Errorf("%s is not a number: %q", strings.ToLower(c.Label()), raw)
		}
		scores.Set(c, &v)
	}
	req.Assignments = scores.Assignments
	req.Quizzes = scores.Quizzes
	req.Midterm = scores.Midterm
	req.Finals = scores.Finals
	return req, nil
}
