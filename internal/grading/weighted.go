package grading

import (
	"fmt"
	"math"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// ComputeWeighted combines the present component scores with their weights.
//
// Missing components are left out of both the weighted sum and the weight total,
// so a student graded only on the midterm gets the raw midterm score as the interim
// result. It returns nil when no weighted component is present. The result is not rounded.
func ComputeWeighted(scores models.ComponentScores, weights models.WeightMap) *float64 {
	var sum, total float64
	for _, c := range models.Components {
		score := scores.Get(c)
		if score == nil {
			continue
		}
		w := weights.Get(c)
		sum += *score * w
		total += w
	}
	if total == 0 {
		return nil
	}
	result := sum / total
	return &result
}

// Round2 rounds to two decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2Ptr rounds a score that may be absent.
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

// ScoreRangeError reports a component score outside [0, 100].
type ScoreRangeError struct {
	Component models.Component
	Score     float64
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("%s score %.2f outside 0-100", e.Component, e.Score)
}

// ValidateScores rejects present scores outside [0, 100].
func ValidateScores(scores models.ComponentScores) error {
	for _, c := range models.Components {
		v := scores.Get(c)
		if v == nil {
			continue
		}
		if *v < 0 || *v > 100 || math.IsNaN(*v) {
			return &ScoreRangeError{Component: c, Score: *v}
		}
	}
	return nil
}
