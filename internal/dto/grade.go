package dto

import (
	"time"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// EnrollStudentRequest adds a student to a course grade sheet.
type EnrollStudentRequest struct {
	StudentID   string `json:"studentId" validate:"required,max=64"`
	StudentName string `json:"studentName" validate:"required,max=200"`
}

// SaveGradesRequest replaces the scores and comments of a record. Omitted scores become ungraded.
type SaveGradesRequest struct {
	Assignments *float64 `json:"assignments" validate:"omitempty,gte=0,lte=100"`
	Quizzes     *float64 `json:"quizzes" validate:"omitempty,gte=0,lte=100"`
	Midterm     *float64 `json:"midterm" validate:"omitempty,gte=0,lte=100"`
	Finals      *float64 `json:"finals" validate:"omitempty,gte=0,lte=100"`
	Comments    string   `json:"comments" validate:"max=2000"`
}

// Scores returns the requested component scores.
func (r SaveGradesRequest) Scores() models.ComponentScores {
	return models.ComponentScores{
		Assignments: r.Assignments,
		Quizzes:     r.Quizzes,
		Midterm:     r.Midterm,
		Finals:      r.Finals,
	}.Clone()
}

// StatusAuto clears a manual status so it is derived from scores again.
const StatusAuto = "auto"

// SetStatusRequest sets or clears a manual status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=incomplete withdrawn auto"`
}

// RecordQuery captures grade sheet listing parameters.
type RecordQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=ungraded in-progress passing failing incomplete withdrawn"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// GradeScales bundles the tables used to label overall scores.
type GradeScales struct {
	Letter  grading.Scale
	Numeric grading.Scale
}

// StudentRecordResponse is a grade sheet row with computed, rounded columns.
type StudentRecordResponse struct {
	ID           string               `json:"id"`
	CourseID     string               `json:"courseId"`
	StudentID    string               `json:"studentId"`
	StudentName  string               `json:"studentName"`
	Assignments  *float64             `json:"assignments"`
	Quizzes      *float64             `json:"quizzes"`
	Midterm      *float64             `json:"midterm"`
	Finals       *float64             `json:"finals"`
	FinalGrade   *float64             `json:"finalGrade"`
	LetterGrade  string               `json:"letterGrade"`
	NumericGrade string               `json:"numericGrade"`
	Status       models.StudentStatus `json:"status"`
	Comments     string               `json:"comments"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NewStudentRecordResponse computes the overall score with full precision and rounds it for display.
func NewStudentRecordResponse(r models.StudentScoreRecord, weights models.WeightMap, scales GradeScales) StudentRecordResponse {
	overall := grading.ComputeWeighted(r.ComponentScores, weights)
	return StudentRecordResponse{
		ID:           r.ID,
		CourseID:     r.CourseID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Assignments:  grading.Round2Ptr(r.Assignments),
		Quizzes:      grading.Round2Ptr(r.Quizzes),
		Midterm:      grading.Round2Ptr(r.Midterm),
		Finals:       grading.Round2Ptr(r.Finals),
		FinalGrade:   grading.Round2Ptr(overall),
		LetterGrade:  grading.ScoreToGrade(overall, scales.Letter),
		NumericGrade: grading.ScoreToGrade(overall, scales.Numeric),
		Status:       r.Status,
		Comments:     r.Comments,
		UpdatedAt:    r.UpdatedAt,
	}
}

// HistoryEntryResponse is one snapshot from the grade ledger.
type HistoryEntryResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Assignments *float64  `json:"assignments"`
	Quizzes     *float64  `json:"quizzes"`
	Midterm     *float64  `json:"midterm"`
	Finals      *float64  `json:"finals"`
	Comments    string    `json:"comments"`
	Teacher     string    `json:"teacher"`
}

// NewHistoryResponse converts ledger entries preserving their order.
func NewHistoryResponse(entries []models.GradeHistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			Timestamp:   e.Timestamp,
			Assignments: e.Assignments,
			Quizzes:     e.Quizzes,
			Midterm:     e.Midterm,
			Finals:      e.Finals,
			Comments:    e.Comments,
			Teacher:     e.Teacher,
		})
	}
	return out
}
