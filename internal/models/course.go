package models

import (
	"math"
	"time"
)

// WeightTolerance is the allowed drift from 1.0 for a weight map to be considered final.
const WeightTolerance = 0.01

// WeightMap holds the fraction of the overall grade carried by each component.
type WeightMap struct {
	Assignments float64 `db:"weight_assignments" json:"assignments"`
	Quizzes     float64 `db:"weight_quizzes" json:"quizzes"`
	Midterm     float64 `db:"weight_midterm" json:"midterm"`
	Finals      float64 `db:"weight_finals" json:"finals"`
}

// DefaultWeights is used when neither the course nor the settings store provide weights.
var DefaultWeights = WeightMap{Assignments: 0.30, Quizzes: 0.20, Midterm: 0.25, Finals: 0.25}

// Get returns the weight of a component.
func (w WeightMap) Get(c Component) float64 {
	switch c {
	case ComponentAssignments:
		return w.Assignments
	case ComponentQuizzes:
		return w.Quizzes
	case ComponentMidterm:
		return w.Midterm
	case ComponentFinals:
		return w.Finals
	default:
		return 0
	}
}

// Sum totals all component weights.
func (w WeightMap) Sum() float64 {
	return w.Assignments + w.Quizzes + w.Midterm + w.Finals
}

// InRange reports whether every weight lies in [0, 1].
func (w WeightMap) InRange() bool {
	for _, c := range Components {
		v := w.Get(c)
		if v < 0 || v > 1 || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Valid reports whether the weights are usable for a final computation.
func (w WeightMap) Valid() bool {
	return w.InRange() && math.Abs(w.Sum()-1) <= WeightTolerance
}

// Course is a graded course section.
type Course struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Section   string `db:"section" json:"section"`
	WeightMap `json:"weights"`
	Finalized bool      `db:"finalized" json:"finalized"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
