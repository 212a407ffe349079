package grading

import (
	"math"
	"sort"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// DefaultPassThreshold is the minimum passing score (the D- threshold).
const DefaultPassThreshold = 60.0

// Stats summarises a set of scores. PassRate is a percentage.
type Stats struct {
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Lowest   float64 `json:"lowest"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	PassRate float64 `json:"pass_rate"`
}

// ComputeStats summarises scores. Standard deviation is the population form.
// Empty input yields zeroed stats.
func ComputeStats(scores []float64, passThreshold float64) Stats {
	n := len(scores)
	if n == 0 {
		return Stats{}
	}
	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)

	var sum float64
	passed := 0
	for _, s := range sorted {
		sum += s
		if s >= passThreshold {
			passed++
		}
	}
	mean := sum / float64(n)

	var squares float64
	for _, s := range sorted {
		d := s - mean
		squares += d * d
	}

	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	return Stats{
		Count:    n,
		Average:  mean,
		Highest:  sorted[n-1],
		Lowest:   sorted[0],
		Median:   median,
		StdDev:   math.Sqrt(squares / float64(n)),
		PassRate: float64(passed) / float64(n) * 100,
	}
}

// ClassStatistics holds overall and per-component statistics for a course.
type ClassStatistics struct {
	Overall    Stats                      `json:"overall"`
	Components map[models.Component]Stats `json:"components"`
	Enrolled   int                        `json:"enrolled"`
	Excluded   int                        `json:"excluded"`
}

// ComputeClassStatistics summarises a course grade sheet.
// Excluded counts records left out of the overall figures by the policy.
func ComputeClassStatistics(records []models.StudentScoreRecord, weights models.WeightMap, policy ZeroScorePolicy, passThreshold float64) ClassStatistics {
	overall := OverallScores(records, weights, policy)
	stats := ClassStatistics{
		Overall:    ComputeStats(overall, passThreshold),
		Components: make(map[models.Component]Stats, len(models.Components)),
		Enrolled:   len(records),
		Excluded:   len(records) - len(overall),
	}
	for _, c := range models.Components {
		stats.Components[c] = ComputeStats(ComponentScoresOf(records, c), passThreshold)
	}
	return stats
}
