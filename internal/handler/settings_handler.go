package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type settingsService interface {
	Grading(ctx context.Context) (models.GradingSettings, error)
	Update(ctx context.Context, req dto.UpdateGradingSettingsRequest, actor models.Actor) (models.GradingSettings, error)
}

// SettingsHandler exposes the grading settings store.
type SettingsHandler struct {
	settings settingsService
}

// NewSettingsHandler constructs the settings handler.
func NewSettingsHandler(settings settingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Grading godoc
// @Summary Effective grading settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /settings/grading [get]
func (h *SettingsHandler) Grading(c *gin.Context) {
	settings, err := h.settings.Grading(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGradingSettingsResponse(settings), nil)
}

// UpdateGrading godoc
// @Summary Update grading settings
// @Description Any subset of default weights, letter scale, numeric scale and pass threshold.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateGradingSettingsRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings/grading [put]
func (h *SettingsHandler) UpdateGrading(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateGradingSettingsRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGradingSettingsResponse(settings), nil)
}
