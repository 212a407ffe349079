package service

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/repository"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

type settingsRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

var gradingSettingKeys = []string{
	models.SettingDefaultWeights,
	models.SettingLetterScale,
	models.SettingNumericScale,
	models.SettingPassThreshold,
}

type statusRefresher interface {
	RederiveStatuses(ctx context.Context, derive repository.StatusDeriver) ([]string, error)
}

// SettingsService resolves grading settings from the settings store over configured defaults.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.GradingSettings
	records   statusRefresher
	cache     courseCacheInvalidator
}

// NewSettingsService constructs a SettingsService. Empty default scales fall back to the built-in tables.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger, defaults models.GradingSettings) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(defaults.LetterScale) == 0 {
		defaults.LetterScale = grading.DefaultLetterScale.Clone()
	}
	if len(defaults.NumericScale) == 0 {
		defaults.NumericScale = grading.DefaultNumericScale.Clone()
	}
	if defaults.DefaultWeights == (models.WeightMap{}) {
		defaults.DefaultWeights = models.DefaultWeights
	}
	if defaults.PassThreshold <= 0 {
		defaults.PassThreshold = grading.DefaultPassThreshold
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger, defaults: defaults}
}

// WithStatusRefresh makes pass threshold changes re-derive the stored status of every record
// and drop the cached analytics of the courses involved.
func (s *SettingsService) WithStatusRefresh(records statusRefresher, cache courseCacheInvalidator) *SettingsService {
	s.records = records
	s.cache = cache
	return s
}

// Grading returns the effective grading settings. Unreadable stored values are ignored with a warning.
func (s *SettingsService) Grading(ctx context.Context) (models.GradingSettings, error) {
	resolved := s.defaults
	resolved.LetterScale = grading.Scale(s.defaults.LetterScale).Clone()
	resolved.NumericScale = grading.Scale(s.defaults.NumericScale).Clone()
	if s.repo == nil {
		return resolved, nil
	}

	stored, err := s.repo.ListByKeys(ctx, gradingSettingKeys)
	if err != nil {
		return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading settings")
	}
	for _, setting := range stored {
		if err := applySetting(&resolved, setting); err != nil {
			s.logger.Warn("ignoring malformed grading setting", zap.String("key", setting.Key), zap.Error(err))
		}
	}
	return resolved, nil
}

// Update validates and persists the provided subset of grading settings.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateGradingSettingsRequest, actor models.Actor) (models.GradingSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading settings payload")
	}

	var updates []models.Setting
	updatedBy := actor.ID
	add := func(key string, value interface{}) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		updates = append(updates, models.Setting{Key: key, Value: string(raw), UpdatedBy: &updatedBy})
		return nil
	}

	if req.DefaultWeights != nil {
		weights := req.DefaultWeights.WeightMap()
		if !weights.Valid() {
			return models.GradingSettings{}, appErrors.Clone(appErrors.ErrInvalidWeights, "default weights must sum to 1.0")
		}
		if err := add(models.SettingDefaultWeights, weights); err != nil {
			return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode weights")
		}
	}
	for key, rows := range map[string][]dto.ScaleThresholdRequest{
		models.SettingLetterScale:  req.LetterScale,
		models.SettingNumericScale: req.NumericScale,
	} {
		if rows == nil {
			continue
		}
		scale := grading.Scale(dto.Thresholds(rows))
		if err := scale.Validate(); err != nil {
			return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrInvalidScale.Code, appErrors.ErrInvalidScale.Status, appErrors.ErrInvalidScale.Message)
		}
		if err := add(key, scale); err != nil {
			return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode grade scale")
		}
	}
	if req.PassThreshold != nil {
		updates = append(updates, models.Setting{
			Key:       models.SettingPassThreshold,
			Value:     strconv.FormatFloat(*req.PassThreshold, 'f', -1, 64),
			UpdatedBy: &updatedBy,
		})
	}

	if len(updates) > 0 {
		if s.repo == nil {
			return models.GradingSettings{}, appErrors.Clone(appErrors.ErrInternal, "settings store unavailable")
		}
		if err := s.repo.BulkUpsert(ctx, updates); err != nil {
			return models.GradingSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grading settings")
		}
		s.logger.Info("grading settings updated", zap.String("actor", actor.ID), zap.Int("keys", len(updates)))
	}
	resolved, err := s.Grading(ctx)
	if err != nil {
		return models.GradingSettings{}, err
	}
	if req.PassThreshold != nil && s.records != nil {
		if err := s.refreshStatuses(ctx, resolved.PassThreshold); err != nil {
			return models.GradingSettings{}, err
		}
	}
	return resolved, nil
}

func (s *SettingsService) refreshStatuses(ctx context.Context, passThreshold float64) error {
	courses, err := s.records.RederiveStatuses(ctx, statusDeriver(passThreshold))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh record statuses")
	}
	if s.cache == nil {
		return nil
	}
	for _, id := range courses {
		if err := s.cache.InvalidateCourse(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate course cache", zap.String("course_id", id), zap.Error(err))
		}
	}
	return nil
}

func applySetting(target *models.GradingSettings, setting models.Setting) error {
	switch setting.Key {
	case models.SettingDefaultWeights:
		var weights models.WeightMap
		if err := json.Unmarshal([]byte(setting.Value), &weights); err != nil {
			return err
		}
		target.DefaultWeights = weights
	case models.SettingLetterScale, models.SettingNumericScale:
		var scale grading.Scale
		if err := json.Unmarshal([]byte(setting.Value), &scale); err != nil {
			return err
		}
		if err := scale.Validate(); err != nil {
			return err
		}
		if setting.Key == models.SettingLetterScale {
			target.LetterScale = scale
		} else {
			target.NumericScale = scale
		}
	case models.SettingPassThreshold:
		threshold, err := strconv.ParseFloat(setting.Value, 64)
		if err != nil {
			return err
		}
		target.PassThreshold = threshold
	}
	return nil
}

func scalesOf(settings models.GradingSettings) dto.GradeScales {
	return dto.GradeScales{Letter: settings.LetterScale, Numeric: settings.NumericScale}
}
