package grading

import (
	"sort"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// DefaultAtRiskThreshold is the score below which a student or component is flagged.
const DefaultAtRiskThreshold = 70.0

// WeakArea is a component scored below the at-risk threshold.
type WeakArea struct {
	Component models.Component `json:"component"`
	Score     float64          `json:"score"`
	Gap       float64          `json:"gap"`
}

// AtRiskStudent describes why a student was flagged.
type AtRiskStudent struct {
	StudentID     string               `json:"student_id"`
	StudentName   string               `json:"student_name"`
	Overall       float64              `json:"overall"`
	OverallGap    float64              `json:"overall_gap"`
	OverallFlag   bool                 `json:"overall_flagged"`
	WeakAreas     []WeakArea           `json:"weak_areas"`
	CurrentStatus models.StudentStatus `json:"status"`
}

// FindAtRisk flags students whose overall score or any present component falls below threshold.
// Students without a gradable overall score are skipped. The result is ordered by ascending
// overall score, most at risk first.
func FindAtRisk(records []models.StudentScoreRecord, weights models.WeightMap, threshold float64) []AtRiskStudent {
	var flagged []AtRiskStudent
	for _, record := range records {
		overall := ComputeWeighted(record.ComponentScores, weights)
		if overall == nil {
			continue
		}
		var weak []WeakArea
		for _, c := range models.Components {
			v := record.Get(c)
			if v == nil || *v >= threshold {
				continue
			}
			weak = append(weak, WeakArea{Component: c, Score: *v, Gap: threshold - *v})
		}
		overallFlag := *overall < threshold
		if !overallFlag && len(weak) == 0 {
			continue
		}
		student := AtRiskStudent{
			StudentID:     record.StudentID,
			StudentName:   record.StudentName,
			Overall:       *overall,
			OverallFlag:   overallFlag,
			WeakAreas:     weak,
			CurrentStatus: record.Status,
		}
		if overallFlag {
			student.OverallGap = threshold - *overall
		}
		flagged = append(flagged, student)
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Overall < flagged[j].Overall
	})
	return flagged
}
