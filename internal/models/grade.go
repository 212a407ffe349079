package models

import "time"

// Component names a graded component of a course grade sheet.
type Component string

const (
	ComponentAssignments Component = "assignments"
	ComponentQuizzes     Component = "quizzes"
	ComponentMidterm     Component = "midterm"
	ComponentFinals      Component = "finals"
)

// Components lists the graded components in grade sheet order.
var Components = []Component{ComponentAssignments, ComponentQuizzes, ComponentMidterm, ComponentFinals}

// Label returns the display name used in exports and reports.
func (c Component) Label() string {
	switch c {
	case ComponentAssignments:
		return "Assignments"
	case ComponentQuizzes:
		return "Quizzes"
	case ComponentMidterm:
		return "Midterm"
	case ComponentFinals:
		return "Finals"
	default:
		return string(c)
	}
}

// ComponentScores holds optional per-component scores. A nil score is ungraded.
type ComponentScores struct {
	Assignments *float64 `db:"assignments" json:"assignments"`
	Quizzes     *float64 `db:"quizzes" json:"quizzes"`
	Midterm     *float64 `db:"midterm" json:"midterm"`
	Finals      *float64 `db:"finals" json:"finals"`
}

// Get returns the score recorded for the component.
func (s ComponentScores) Get(c Component) *float64 {
	switch c {
	case ComponentAssignments:
		return s.Assignments
	case ComponentQuizzes:
		return s.Quizzes
	case ComponentMidterm:
		return s.Midterm
	case ComponentFinals:
		return s.Finals
	default:
		return nil
	}
}

// Set overwrites the score for the component.
func (s *ComponentScores) Set(c Component, v *float64) {
	switch c {
	case ComponentAssignments:
		s.Assignments = v
	case ComponentQuizzes:
		s.Quizzes = v
	case ComponentMidterm:
		s.Midterm = v
	case ComponentFinals:
		s.Finals = v
	}
}

// PresentCount returns how many components carry a score.
func (s ComponentScores) PresentCount() int {
	count := 0
	for _, c := range Components {
		if s.Get(c) != nil {
			count++
		}
	}
	return count
}

// Clone returns a copy that shares no pointers with s.
func (s ComponentScores) Clone() ComponentScores {
	var out ComponentScores
	for _, c := range Components {
		if v := s.Get(c); v != nil {
			value := *v
			out.Set(c, &value)
		}
	}
	return out
}

// StudentStatus captures the grading state of a student record.
type StudentStatus string

const (
	StudentStatusUngraded   StudentStatus = "ungraded"
	StudentStatusInProgress StudentStatus = "in-progress"
	StudentStatusPassing    StudentStatus = "passing"
	StudentStatusFailing    StudentStatus = "failing"
	StudentStatusIncomplete StudentStatus = "incomplete"
	StudentStatusWithdrawn  StudentStatus = "withdrawn"
)

// Manual reports whether the status is set by a teacher rather than derived from scores.
func (s StudentStatus) Manual() bool {
	return s == StudentStatusIncomplete || s == StudentStatusWithdrawn
}

// StudentScoreRecord is the current grade sheet row for a student in a course.
type StudentScoreRecord struct {
	ID          string `db:"id" json:"id"`
	CourseID    string `db:"course_id" json:"course_id"`
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	ComponentScores
	Comments  string              `db:"comments" json:"comments"`
	Status    StudentStatus       `db:"status" json:"status"`
	History   []GradeHistoryEntry `db:"-" json:"history,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// GradeHistoryEntry is an immutable snapshot of a record taken before it was overwritten.
type GradeHistoryEntry struct {
	ID       string `db:"id" json:"id"`
	RecordID string `db:"record_id" json:"record_id"`
	ComponentScores
	Comments  string    `db:"comments" json:"comments"`
	Teacher   string    `db:"teacher" json:"teacher"`
	Timestamp time.Time `db:"recorded_at" json:"timestamp"`
}

// RecordFilter scopes grade sheet listings.
type RecordFilter struct {
	CourseID string
	Status   StudentStatus
	Search   string
	Page     int
	PageSize int
}

// ScaleThreshold maps a grade label to its minimum score.
type ScaleThreshold struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
}
