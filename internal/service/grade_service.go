package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/repository"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

type studentRecordRepository interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.StudentScoreRecord, int, error)
	FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.StudentScoreRecord, error)
	Create(ctx context.Context, record *models.StudentScoreRecord) error
	Mutate(ctx context.Context, courseID, studentID string, fn repository.RecordMutation) (*models.StudentScoreRecord, error)
	ListHistory(ctx context.Context, recordID string) ([]models.GradeHistoryEntry, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

var errUnchanged = errors.New("record unchanged")

// GradeService records scores on course grade sheets and keeps the history ledger.
type GradeService struct {
	records   studentRecordRepository
	courses   courseReader
	settings  gradingSettingsProvider
	cache     courseCacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs a GradeService.
func NewGradeService(records studentRecordRepository, courses courseReader, settings gradingSettingsProvider, cache courseCacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		records:   records,
		courses:   courses,
		settings:  settings,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll adds an ungraded student record to a course.
func (s *GradeService) Enroll(ctx context.Context, courseID string, req dto.EnrollStudentRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	course, err := s.writableCourse(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}
	record := &models.StudentScoreRecord{
		CourseID:    course.ID,
		StudentID:   strings.TrimSpace(req.StudentID),
		StudentName: strings.TrimSpace(req.StudentName),
		Status:      models.StudentStatusUngraded,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	s.invalidate(ctx, course.ID)
	return s.respond(ctx, *record, course.WeightMap)
}

// ListRecords returns a page of the course grade sheet.
func (s *GradeService) ListRecords(ctx context.Context, courseID string, query dto.RecordQuery) ([]dto.StudentRecordResponse, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.RecordFilter{
		CourseID: course.ID,
		Status:   models.StudentStatus(query.Status),
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student records")
	}
	settings, err := s.gradingSettings(ctx)
	if err != nil {
		return nil, nil, err
	}
	scales := scalesOf(settings)
	out := make([]dto.StudentRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.NewStudentRecordResponse(r, course.WeightMap, scales))
	}
	return out, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetRecord returns one grade sheet row.
func (s *GradeService) GetRecord(ctx context.Context, courseID, studentID string) (*dto.StudentRecordResponse, error) {
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	record, err := s.record(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, *record, course.WeightMap)
}

// SaveGrades overwrites the scores and comments of a record.
// The previous values are appended to the history ledger in the same transaction
// and the status is derived again unless a teacher set it manually.
func (s *GradeService) SaveGrades(ctx context.Context, courseID, studentID string, req dto.SaveGradesRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	record, course, _, err := s.saveGrades(ctx, courseID, studentID, req, actor)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, *record, course.WeightMap)
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeComments stores comments with LF line breaks so CSV and XLSX round trips compare equal.
func normalizeComments(raw string) string {
	return strings.TrimSpace(lineBreaks.Replace(raw))
}

// statusDeriver refreshes stored statuses when weights or the pass threshold change.
func statusDeriver(passThreshold float64) repository.StatusDeriver {
	return func(weights models.WeightMap, record models.StudentScoreRecord) models.StudentStatus {
		return grading.DeriveStatus(record.ComponentScores, weights, passThreshold, record.Status)
	}
}

// saveGrades reports whether the stored record changed. Identical submissions leave no history entry.
func (s *GradeService) saveGrades(ctx context.Context, courseID, studentID string, req dto.SaveGradesRequest, actor models.Actor) (*models.StudentScoreRecord, *models.Course, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	scores := req.Scores()
	if err := grading.ValidateScores(scores); err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	course, err := s.writableCourse(ctx, courseID, actor)
	if err != nil {
		return nil, nil, false, err
	}
	settings, err := s.gradingSettings(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	comments := normalizeComments(req.Comments)
	at := s.now()
	updated, err := s.records.Mutate(ctx, courseID, studentID, func(current *models.StudentScoreRecord) error {
		if sameScores(current.ComponentScores, scores) && current.Comments == comments {
			return errUnchanged
		}
		if err := grading.AppendSnapshot(current, grading.SnapshotOf(*current, actor.Name, at)); err != nil {
			return err
		}
		current.ComponentScores = scores.Clone()
		current.Comments = comments
		current.Status = grading.DeriveStatus(current.ComponentScores, course.WeightMap, settings.PassThreshold, current.Status)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		record, findErr := s.record(ctx, courseID, studentID)
		return record, course, false, findErr
	}
	s.metrics.ObserveGradeWrite("grades", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grades")
	}

	s.invalidate(ctx, courseID)
	s.logger.Info("grades saved",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.String("actor", actor.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, course, true, nil
}

// SetStatus marks a record incomplete or withdrawn, or returns it to derived status with "auto".
func (s *GradeService) SetStatus(ctx context.Context, courseID, studentID string, req dto.SetStatusRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	course, err := s.writableCourse(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}
	settings, err := s.gradingSettings(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.records.Mutate(ctx, courseID, studentID, func(current *models.StudentScoreRecord) error {
		if req.Status == dto.StatusAuto {
			current.Status = grading.DeriveStatus(current.ComponentScores, course.WeightMap, settings.PassThreshold, "")
		} else {
			current.Status = models.StudentStatus(req.Status)
		}
		return nil
	})
	s.metrics.ObserveGradeWrite("status", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.invalidate(ctx, courseID)
	return s.respond(ctx, *updated, course.WeightMap)
}

// History returns the ledger of a record oldest first, or newest first when requested.
func (s *GradeService) History(ctx context.Context, courseID, studentID string, newestFirst bool) ([]dto.HistoryEntryResponse, error) {
	record, err := s.record(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	entries, err := s.records.ListHistory(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade history")
	}
	if newestFirst {
		entries = grading.NewestFirst(entries)
	}
	return dto.NewHistoryResponse(entries), nil
}

func (s *GradeService) course(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *GradeService) writableCourse(ctx context.Context, courseID string, actor models.Actor) (*models.Course, error) {
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Finalized && !actor.Role.CanOverrideFinalized() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "course is finalized")
	}
	return course, nil
}

func (s *GradeService) record(ctx context.Context, courseID, studentID string) (*models.StudentScoreRecord, error) {
	record, err := s.records.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student record")
	}
	return record, nil
}

func (s *GradeService) gradingSettings(ctx context.Context) (models.GradingSettings, error) {
	if s.settings == nil {
		return models.GradingSettings{
			DefaultWeights: models.DefaultWeights,
			LetterScale:    grading.DefaultLetterScale,
			NumericScale:   grading.DefaultNumericScale,
			PassThreshold:  grading.DefaultPassThreshold,
		}, nil
	}
	return s.settings.Grading(ctx)
}

func (s *GradeService) respond(ctx context.Context, record models.StudentScoreRecord, weights models.WeightMap) (*dto.StudentRecordResponse, error) {
	settings, err := s.gradingSettings(ctx)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentRecordResponse(record, weights, scalesOf(settings))
	return &resp, nil
}

func (s *GradeService) invalidate(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCourse(ctx, courseID); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.String("course_id", courseID), zap.Error(err))
	}
}

func sameScores(a, b models.ComponentScores) bool {
	for _, c := range models.Components {
		x, y := a.Get(c), b.Get(c)
		if (x == nil) != (y == nil) {
			return false
		}
		if x != nil && *x != *y {
			return false
		}
	}
	return true
}
