package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type analyticsService interface {
	Statistics(ctx context.Context, courseID string) (*dto.ClassStatisticsResponse, bool, error)
	Ranking(ctx context.Context, courseID string) ([]dto.RankingEntryResponse, bool, error)
	AtRisk(ctx context.Context, courseID string, threshold *float64) ([]dto.AtRiskResponse, bool, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes class analytics.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Stats godoc
// @Summary Class statistics
// @Description Overall and per-component count, average, highest, lowest, median, standard deviation and pass rate.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/analytics/stats [get]
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	stats, hit, err := h.analytics.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, cacheMeta(c, hit))
}

// Ranking godoc
// @Summary Class ranking
// @Description Students ordered by overall score. Equal scores share a rank.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/analytics/ranking [get]
func (h *AnalyticsHandler) Ranking(c *gin.Context) {
	ranking, hit, err := h.analytics.Ranking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, nil, cacheMeta(c, hit))
}

// AtRisk godoc
// @Summary Students at risk
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param threshold query number false "Score threshold (default 70)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/analytics/at-risk [get]
func (h *AnalyticsHandler) AtRisk(c *gin.Context) {
	var query dto.AtRiskQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "threshold must be a number"))
		return
	}
	students, hit, err := h.analytics.AtRisk(c.Request.Context(), c.Param("id"), query.Threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, cacheMeta(c, hit))
}

// System godoc
// @Summary Service instrumentation totals
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
