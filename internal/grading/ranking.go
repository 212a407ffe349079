package grading

import (
	"math"
	"sort"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// RankInput is a student with an overall score to be ranked.
type RankInput struct {
	ID    string
	Name  string
	Score float64
}

// Ranked is a RankInput with its competition rank and percentile.
type Ranked struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Percentile int     `json:"percentile"`
}

// Rank orders students by descending score and assigns competition ranks:
// equal scores share a rank and the next distinct score resumes at its position.
// Ties keep their input order.
func Rank(students []RankInput) []Ranked {
	sorted := make([]RankInput, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	n := len(sorted)
	ranked := make([]Ranked, n)
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && s.Score == sorted[i-1].Score {
			rank = ranked[i-1].Rank
		}
		ranked[i] = Ranked{
			ID:         s.ID,
			Name:       s.Name,
			Score:      s.Score,
			Rank:       rank,
			Percentile: int(math.Round((1 - float64(rank-1)/float64(n)) * 100)),
		}
	}
	return ranked
}

// RankRecords ranks a grade sheet by overall weighted score, honouring the zero score policy.
func RankRecords(records []models.StudentScoreRecord, weights models.WeightMap, policy ZeroScorePolicy) []Ranked {
	inputs := make([]RankInput, 0, len(records))
	for _, record := range records {
		overall, ok := policy.Overall(record.ComponentScores, weights)
		if !ok {
			continue
		}
		inputs = append(inputs, RankInput{ID: record.StudentID, Name: record.StudentName, Score: overall})
	}
	return Rank(inputs)
}
