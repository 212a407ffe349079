package dto

import (
	"time"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// WeightsRequest carries a full weight map. Every component must be present.
type WeightsRequest struct {
	Assignments *float64 `json:"assignments" validate:"required,gte=0,lte=1"`
	Quizzes     *float64 `json:"quizzes" validate:"required,gte=0,lte=1"`
	Midterm     *float64 `json:"midterm" validate:"required,gte=0,lte=1"`
	Finals      *float64 `json:"finals" validate:"required,gte=0,lte=1"`
}

// WeightMap converts the request into a model. Missing values become zero.
func (r WeightsRequest) WeightMap() models.WeightMap {
	value := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return models.WeightMap{
		Assignments: value(r.Assignments),
		Quizzes:     value(r.Quizzes),
		Midterm:     value(r.Midterm),
		Finals:      value(r.Finals),
	}
}

// CreateCourseRequest describes POST /courses. Weights default to the grading settings.
type CreateCourseRequest struct {
	ID      string          `json:"id" validate:"omitempty,max=64"`
	Name    string          `json:"name" validate:"required,max=200"`
	Section string          `json:"section" validate:"max=50"`
	Weights *WeightsRequest `json:"weights" validate:"omitempty"`
}

// WeightsResponse exposes a weight map along with its finalization readiness.
type WeightsResponse struct {
	Assignments float64 `json:"assignments"`
	Quizzes     float64 `json:"quizzes"`
	Midterm     float64 `json:"midterm"`
	Finals      float64 `json:"finals"`
	Sum         float64 `json:"sum"`
	Valid       bool    `json:"valid"`
}

// NewWeightsResponse builds a WeightsResponse.
func NewWeightsResponse(w models.WeightMap) WeightsResponse {
	return WeightsResponse{
		Assignments: w.Assignments,
		Quizzes:     w.Quizzes,
		Midterm:     w.Midterm,
		Finals:      w.Finals,
		Sum:         grading.Round2(w.Sum()),
		Valid:       w.Valid(),
	}
}

// CourseResponse is the API shape of a course.
type CourseResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Section   string          `json:"section"`
	Weights   WeightsResponse `json:"weights"`
	Finalized bool            `json:"finalized"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewCourseResponse builds a CourseResponse.
func NewCourseResponse(c models.Course) CourseResponse {
	return CourseResponse{
		ID:        c.ID,
		Name:      c.Name,
		Section:   c.Section,
		Weights:   NewWeightsResponse(c.WeightMap),
		Finalized: c.Finalized,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
