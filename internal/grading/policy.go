package grading

import (
	"strings"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// ZeroScorePolicy decides how students without any weighted component enter class aggregates.
type ZeroScorePolicy string

const (
	// ExcludeUngraded leaves ungradable students out of averages and rankings.
	ExcludeUngraded ZeroScorePolicy = "exclude"
	// CountUngradedAsZero includes them with an overall score of 0.
	CountUngradedAsZero ZeroScorePolicy = "zero"
)

// ParseZeroScorePolicy maps configuration input to a policy, defaulting to ExcludeUngraded.
func ParseZeroScorePolicy(raw string) ZeroScorePolicy {
	if ZeroScorePolicy(strings.ToLower(strings.TrimSpace(raw))) == CountUngradedAsZero {
		return CountUngradedAsZero
	}
	return ExcludeUngraded
}

// Overall returns the score a record contributes to class aggregates and whether it participates.
func (p ZeroScorePolicy) Overall(scores models.ComponentScores, weights models.WeightMap) (float64, bool) {
	overall := ComputeWeighted(scores, weights)
	if overall != nil {
		return *overall, true
	}
	if p == CountUngradedAsZero {
		return 0, true
	}
	return 0, false
}

// OverallScores collects the overall scores that participate in class aggregates.
func OverallScores(records []models.StudentScoreRecord, weights models.WeightMap, policy ZeroScorePolicy) []float64 {
	scores := make([]float64, 0, len(records))
	for _, record := range records {
		if overall, ok := policy.Overall(record.ComponentScores, weights); ok {
			scores = append(scores, overall)
		}
	}
	return scores
}

// ComponentScoresOf collects the present scores for a single component.
func ComponentScoresOf(records []models.StudentScoreRecord, c models.Component) []float64 {
	scores := make([]float64, 0, len(records))
	for _, record := range records {
		if v := record.Get(c); v != nil {
			scores = append(scores, *v)
		}
	}
	return scores
}
