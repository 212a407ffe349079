package dto

import "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"

// ScaleThresholdRequest is one row of a grade table.
type ScaleThresholdRequest struct {
	Label string   `json:"label" validate:"required,max=16"`
	Min   *float64 `json:"min" validate:"required"`
}

// UpdateGradingSettingsRequest changes any subset of the grading settings.
type UpdateGradingSettingsRequest struct {
	DefaultWeights *WeightsRequest         `json:"defaultWeights" validate:"omitempty"`
	LetterScale    []ScaleThresholdRequest `json:"letterScale" validate:"omitempty,min=1,dive"`
	NumericScale   []ScaleThresholdRequest `json:"numericScale" validate:"omitempty,min=1,dive"`
	PassThreshold  *float64                `json:"passThreshold" validate:"omitempty,gte=0,lte=100"`
}

// Thresholds converts request rows into model thresholds.
func Thresholds(rows []ScaleThresholdRequest) []models.ScaleThreshold {
	if rows == nil {
		return nil
	}
	out := make([]models.ScaleThreshold, 0, len(rows))
	for _, r := range rows {
		var floor float64
		if r.Min != nil {
			floor = *r.Min
		}
		out = append(out, models.ScaleThreshold{Label: r.Label, Min: floor})
	}
	return out
}

// GradingSettingsResponse exposes the resolved grading settings.
type GradingSettingsResponse struct {
	DefaultWeights WeightsResponse         `json:"defaultWeights"`
	LetterScale    []models.ScaleThreshold `json:"letterScale"`
	NumericScale   []models.ScaleThreshold `json:"numericScale"`
	PassThreshold  float64                 `json:"passThreshold"`
}

// NewGradingSettingsResponse builds the response shape.
func NewGradingSettingsResponse(s models.GradingSettings) GradingSettingsResponse {
	return GradingSettingsResponse{
		DefaultWeights: NewWeightsResponse(s.DefaultWeights),
		LetterScale:    s.LetterScale,
		NumericScale:   s.NumericScale,
		PassThreshold:  s.PassThreshold,
	}
}
