package grading

import (
	"fmt"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// NotAvailable is the label returned for scores that cannot be graded yet.
const NotAvailable = "N/A"

// Scale is an ordered threshold table. Entries must be sorted by descending Min.
type Scale []models.ScaleThreshold

// DefaultLetterScale is the letter grade table used when no override is stored.
var DefaultLetterScale = Scale{
	{Label: "A+", Min: 97},
	{Label: "A", Min: 93},
	{Label: "A-", Min: 90},
	{Label: "B+", Min: 87},
	{Label: "B", Min: 83},
	{Label: "B-", Min: 80},
	{Label: "C+", Min: 77},
	{Label: "C", Min: 73},
	{Label: "C-", Min: 70},
	{Label: "D+", Min: 67},
	{Label: "D", Min: 63},
	{Label: "D-", Min: 60},
	{Label: "F", Min: 0},
}

// DefaultNumericScale is the 1.00–5.00 numeric grade table used when no override is stored.
var DefaultNumericScale = Scale{
	{Label: "1.00", Min: 95},
	{Label: "1.25", Min: 92},
	{Label: "1.50", Min: 89},
	{Label: "1.75", Min: 86},
	{Label: "2.00", Min: 83},
	{Label: "2.25", Min: 80},
	{Label: "2.50", Min: 77},
	{Label: "2.75", Min: 74},
	{Label: "3.00", Min: 71},
	{Label: "3.50", Min: 68},
	{Label: "4.00", Min: 65},
	{Label: "5.00", Min: 0},
}

// ScoreToGrade returns the first label whose threshold does not exceed score.
// Scores below every threshold fall back to the last entry. A nil score yields NotAvailable.
func ScoreToGrade(score *float64, scale Scale) string {
	if score == nil || len(scale) == 0 {
		return NotAvailable
	}
	for _, t := range scale {
		if t.Min <= *score {
			return t.Label
		}
	}
	return scale[len(scale)-1].Label
}

// Validate checks that the table is non-empty, labelled, and strictly descending.
func (s Scale) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("scale is empty")
	}
	for i, t := range s {
		if t.Label == "" {
			return fmt.Errorf("scale entry %d has no label", i)
		}
		if i > 0 && t.Min >= s[i-1].Min {
			return fmt.Errorf("scale entry %q (%.2f) must be below %q (%.2f)", t.Label, t.Min, s[i-1].Label, s[i-1].Min)
		}
	}
	return nil
}

// Clone returns an independent copy of the table.
func (s Scale) Clone() Scale {
	out := make(Scale, len(s))
	copy(out, s)
	return out
}

// Performance labels a component score using fixed bands.
func Performance(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Very Good"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Satisfactory"
	default:
		return "Needs Improvement"
	}
}
