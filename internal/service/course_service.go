package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/repository"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateWeights(ctx context.Context, id string, weights models.WeightMap, derive repository.StatusDeriver) error
	SetFinalized(ctx context.Context, id string, finalized bool) error
}

type gradingSettingsProvider interface {
	Grading(ctx context.Context) (models.GradingSettings, error)
}

type courseCacheInvalidator interface {
	InvalidateCourse(ctx context.Context, courseID string) error
}

// CourseService manages courses, their weight maps and the finalization lock.
type CourseService struct {
	repo      courseRepository
	settings  gradingSettingsProvider
	cache     courseCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, settings gradingSettingsProvider, cache courseCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, settings: settings, cache: cache, validator: validate, logger: logger}
}

// List returns all courses.
func (s *CourseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	out := make([]dto.CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, dto.NewCourseResponse(c))
	}
	return out, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course. Without explicit weights the configured default weights apply.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		ID:      strings.TrimSpace(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Section: strings.TrimSpace(req.Section),
	}
	if req.Weights != nil {
		course.WeightMap = req.Weights.WeightMap()
	} else {
		course.WeightMap = models.DefaultWeights
		if s.settings != nil {
			settings, err := s.settings.Grading(ctx)
			if err != nil {
				return nil, err
			}
			course.WeightMap = settings.DefaultWeights
		}
	}
	if !course.WeightMap.InRange() {
		return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "weights must be between 0 and 1")
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.Name))
	return course, nil
}

// UpdateWeights replaces the weight map of an open course.
// Weights that do not sum to 1.0 are stored; they only block finalization.
func (s *CourseService) UpdateWeights(ctx context.Context, id string, req dto.WeightsRequest, actor models.Actor) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weights payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Finalized && !actor.Role.CanOverrideFinalized() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "course is finalized")
	}
	settings, err := s.settings.Grading(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading settings")
	}
	weights := req.WeightMap()
	if err := s.repo.UpdateWeights(ctx, id, weights, statusDeriver(settings.PassThreshold)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update weights")
	}
	course.WeightMap = weights
	s.invalidate(ctx, id)
	if !weights.Valid() {
		s.logger.Warn("course weights do not sum to 1", zap.String("course_id", id), zap.Float64("sum", weights.Sum()))
	}
	return course, nil
}

// Finalize locks the course grade sheet. The weight map must sum to 1.0 within tolerance.
func (s *CourseService) Finalize(ctx context.Context, id string, actor models.Actor) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Finalized {
		return course, nil
	}
	if !course.WeightMap.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "weights must sum to 1.0 before finalizing")
	}
	if err := s.repo.SetFinalized(ctx, id, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize course")
	}
	course.Finalized = true
	s.invalidate(ctx, id)
	s.logger.Info("course finalized", zap.String("course_id", id), zap.String("actor", actor.ID))
	return course, nil
}

// Reopen unlocks a finalized course. Only administrators may reopen.
func (s *CourseService) Reopen(ctx context.Context, id string, actor models.Actor) (*models.Course, error) {
	if !actor.Role.CanOverrideFinalized() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reopen a course")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Finalized {
		return course, nil
	}
	if err := s.repo.SetFinalized(ctx, id, false); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen course")
	}
	course.Finalized = false
	s.invalidate(ctx, id)
	s.logger.Info("course reopened", zap.String("course_id", id), zap.String("actor", actor.ID))
	return course, nil
}

func (s *CourseService) invalidate(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCourse(ctx, courseID); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.String("course_id", courseID), zap.Error(err))
	}
}
