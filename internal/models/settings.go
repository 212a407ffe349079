package models

import "time"

// Setting keys persisted in the settings store.
const (
	SettingDefaultWeights = "grading.default_weights"
	SettingLetterScale    = "grading.letter_scale"
	SettingNumericScale   = "grading.numeric_scale"
	SettingPassThreshold  = "grading.pass_threshold"
)

// Setting is a persisted key/value entry. Values are JSON encoded.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradingSettings is the resolved grading configuration used by the engine.
type GradingSettings struct {
	DefaultWeights WeightMap        `json:"default_weights"`
	LetterScale    []ScaleThreshold `json:"letter_scale"`
	NumericScale   []ScaleThreshold `json:"numeric_scale"`
	PassThreshold  float64          `json:"pass_threshold"`
}
