package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/cache"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

// gradebookReader loads a course with every record in one consistent read.
type gradebookReader interface {
	Gradebook(ctx context.Context, courseID string, withHistory bool) (*models.Course, []models.StudentScoreRecord, error)
}

// AnalyticsServiceConfig tunes analytics defaults.
type AnalyticsServiceConfig struct {
	CacheTTL        time.Duration
	AtRiskThreshold float64
	ZeroScorePolicy grading.ZeroScorePolicy
}

// AnalyticsService computes class statistics, rankings and at-risk lists and caches them per course.
type AnalyticsService struct {
	repo     gradebookReader
	settings gradingSettingsProvider
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      AnalyticsServiceConfig
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo gradebookReader, settings gradingSettingsProvider, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AnalyticsServiceConfig) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AtRiskThreshold <= 0 {
		cfg.AtRiskThreshold = grading.DefaultAtRiskThreshold
	}
	if cfg.ZeroScorePolicy == "" {
		cfg.ZeroScorePolicy = grading.ExcludeUngraded
	}
	return &AnalyticsService{repo: repo, settings: settings, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Statistics returns overall and per-component statistics. The boolean reports a cache hit.
func (s *AnalyticsService) Statistics(ctx context.Context, courseID string) (*dto.ClassStatisticsResponse, bool, error) {
	pass, err := s.passThreshold(ctx)
	if err != nil {
		return nil, false, err
	}
	key := cache.CourseKey(courseID, "stats", string(s.cfg.ZeroScorePolicy), formatFloat(pass))
	result, hit, err := cached(ctx, s.cache, key, s.cfg.CacheTTL, func() (dto.ClassStatisticsResponse, error) {
		course, records, err := s.load(ctx, courseID)
		if err != nil {
			return dto.ClassStatisticsResponse{}, err
		}
		stats := grading.ComputeClassStatistics(records, course.WeightMap, s.cfg.ZeroScorePolicy, pass)
		return dto.NewClassStatisticsResponse(course.ID, s.cfg.ZeroScorePolicy, pass, stats), nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, hit, nil
}

// Ranking returns the class ranking with competition ranks.
func (s *AnalyticsService) Ranking(ctx context.Context, courseID string) ([]dto.RankingEntryResponse, bool, error) {
	key := cache.CourseKey(courseID, "ranking", string(s.cfg.ZeroScorePolicy))
	return cached(ctx, s.cache, key, s.cfg.CacheTTL, func() ([]dto.RankingEntryResponse, error) {
		course, records, err := s.load(ctx, courseID)
		if err != nil {
			return nil, err
		}
		return dto.NewRankingResponse(grading.RankRecords(records, course.WeightMap, s.cfg.ZeroScorePolicy)), nil
	})
}

// AtRisk lists students below the threshold overall or in any component. A nil threshold uses the configured one.
func (s *AnalyticsService) AtRisk(ctx context.Context, courseID string, threshold *float64) ([]dto.AtRiskResponse, bool, error) {
	limit := s.cfg.AtRiskThreshold
	if threshold != nil {
		if *threshold < 0 || *threshold > 100 {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 100")
		}
		limit = *threshold
	}
	key := cache.CourseKey(courseID, "at-risk", formatFloat(limit))
	return cached(ctx, s.cache, key, s.cfg.CacheTTL, func() ([]dto.AtRiskResponse, error) {
		course, records, err := s.load(ctx, courseID)
		if err != nil {
			return nil, err
		}
		return dto.NewAtRiskResponse(grading.FindAtRisk(records, course.WeightMap, limit)), nil
	})
}

// SystemMetrics exposes instrumentation totals.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	if s.metrics == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) load(ctx context.Context, courseID string) (*models.Course, []models.StudentScoreRecord, error) {
	start := time.Now()
	course, records, err := s.repo.Gradebook(ctx, courseID, false)
	s.metrics.ObserveDBQuery("gradebook", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		s.logger.Error("failed to load gradebook", zap.String("course_id", courseID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}
	return course, records, nil
}

func (s *AnalyticsService) passThreshold(ctx context.Context) (float64, error) {
	if s.settings == nil {
		return grading.DefaultPassThreshold, nil
	}
	settings, err := s.settings.Grading(ctx)
	if err != nil {
		return 0, err
	}
	return settings.PassThreshold, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
