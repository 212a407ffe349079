package grading

import "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"

// DeriveStatus computes the grading state of a record after its scores change.
//
// Incomplete and withdrawn are set by teachers and are kept as is. Otherwise a record
// with no scores is ungraded, a record missing any component that carries weight is
// in progress, and a complete record passes when its overall score reaches passThreshold.
// A component whose weight is zero cannot change the overall score, so it is not
// required: with weights {Finals: 1} a record holding only finals is already graded.
// Finals are always required, whatever their weight.
func DeriveStatus(scores models.ComponentScores, weights models.WeightMap, passThreshold float64, current models.StudentStatus) models.StudentStatus {
	if current.Manual() {
		return current
	}
	if scores.PresentCount() == 0 {
		return models.StudentStatusUngraded
	}
	if scores.Finals == nil {
		return models.StudentStatusInProgress
	}
	for _, c := range models.Components {
		if weights.Get(c) > 0 && scores.Get(c) == nil {
			return models.StudentStatusInProgress
		}
	}
	overall := ComputeWeighted(scores, weights)
	if overall == nil {
		return models.StudentStatusInProgress
	}
	if *overall >= passThreshold {
		return models.StudentStatusPassing
	}
	return models.StudentStatusFailing
}
