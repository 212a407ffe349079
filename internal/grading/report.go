package grading

import (
	"math"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// Trend classifies how a student's scores moved across their history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendSteady    Trend = "steady"
)

const (
	// strengthMargin is the distance from the class average that marks a strength or weakness.
	strengthMargin = 5.0
	// trendMargin is the change in average score needed to leave the steady trend.
	trendMargin = 3.0
)

var componentRecommendations = map[models.Component]string{
	models.ComponentAssignments: "Complete and submit all assignments on time and review the feedback on returned work.",
	models.ComponentQuizzes:     "Review lesson notes after each class and practise with previous quizzes before the next one.",
	models.ComponentMidterm:     "Go over the midterm coverage with the teacher and schedule a consultation on the missed topics.",
	models.ComponentFinals:      "Prepare a structured review plan for the final examination and attend review sessions.",
}

const (
	failingRecommendation   = "The student is currently failing: arrange a parent-teacher conference and agree on an intervention plan."
	decliningRecommendation = "Scores are lower than in earlier records: monitor progress closely over the coming weeks."
	steadyRecommendation    = "Keep up the consistent performance across all components."
)

// ComponentBreakdown compares one component score with the class.
type ComponentBreakdown struct {
	Component       models.Component `json:"component"`
	Score           float64          `json:"score"`
	ClassAverage    float64          `json:"class_average"`
	WeightPercent   float64          `json:"weight_percent"`
	RelativePercent float64          `json:"relative_percent"`
	Performance     string           `json:"performance"`
}

// StudentReport is the narrative report for one student in a course.
type StudentReport struct {
	StudentID       string               `json:"student_id"`
	StudentName     string               `json:"student_name"`
	CourseID        string               `json:"course_id"`
	CourseName      string               `json:"course_name"`
	Section         string               `json:"section"`
	Status          models.StudentStatus `json:"status"`
	Overall         *float64             `json:"overall"`
	LetterGrade     string               `json:"letter_grade"`
	NumericGrade    string               `json:"numeric_grade"`
	Components      []ComponentBreakdown `json:"components"`
	Strengths       []models.Component   `json:"strengths"`
	Weaknesses      []models.Component   `json:"weaknesses"`
	Recommendations []string             `json:"recommendations"`
	Trend           Trend                `json:"trend"`
	TrendDelta      float64              `json:"trend_delta"`
	Comments        string               `json:"comments"`
}

// ReportOptions supplies the grade tables used by BuildReport. Empty tables fall back to the defaults.
type ReportOptions struct {
	LetterScale  Scale
	NumericScale Scale
}

// BuildReport composes the per-student report.
// Class averages are taken over classmates, which should be the full grade sheet of the course.
func BuildReport(student models.StudentScoreRecord, course models.Course, classmates []models.StudentScoreRecord, opts ReportOptions) StudentReport {
	letters := opts.LetterScale
	if len(letters) == 0 {
		letters = DefaultLetterScale
	}
	numerics := opts.NumericScale
	if len(numerics) == 0 {
		numerics = DefaultNumericScale
	}

	overall := ComputeWeighted(student.ComponentScores, course.WeightMap)
	report := StudentReport{
		StudentID:    student.StudentID,
		StudentName:  student.StudentName,
		CourseID:     course.ID,
		CourseName:   course.Name,
		Section:      course.Section,
		Status:       student.Status,
		Overall:      overall,
		LetterGrade:  ScoreToGrade(overall, letters),
		NumericGrade: ScoreToGrade(overall, numerics),
		Comments:     student.Comments,
	}

	for _, c := range models.Components {
		score := student.Get(c)
		if score == nil {
			continue
		}
		average := ComputeStats(ComponentScoresOf(classmates, c), 0).Average
		relative := 100.0
		if average != 0 {
			relative = *score / average * 100
		}
		report.Components = append(report.Components, ComponentBreakdown{
			Component:       c,
			Score:           *score,
			ClassAverage:    average,
			WeightPercent:   course.Get(c) * 100,
			RelativePercent: relative,
			Performance:     Performance(*score),
		})
		switch {
		case *score >= average+strengthMargin:
			report.Strengths = append(report.Strengths, c)
		case *score <= average-strengthMargin:
			report.Weaknesses = append(report.Weaknesses, c)
		}
	}

	for _, c := range report.Weaknesses {
		report.Recommendations = append(report.Recommendations, componentRecommendations[c])
	}
	if student.Status == models.StudentStatusFailing {
		report.Recommendations = append(report.Recommendations, failingRecommendation)
	}

	report.Trend, report.TrendDelta = ClassifyTrend(student.History)
	if report.Trend == TrendDeclining {
		report.Recommendations = append(report.Recommendations, decliningRecommendation)
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, steadyRecommendation)
	}
	return report
}

// ClassifyTrend compares the early and late halves of a chronological history.
// The split point is ceil(n/2). Each half is averaged per component and then across
// components; a difference above three points leaves the steady trend.
func ClassifyTrend(history []models.GradeHistoryEntry) (Trend, float64) {
	if len(history) < 2 {
		return TrendSteady, 0
	}
	split := int(math.Ceil(float64(len(history)) / 2))
	early, okEarly := halfAverage(history[:split])
	late, okLate := halfAverage(history[split:])
	if !okEarly || !okLate {
		return TrendSteady, 0
	}
	delta := late - early
	switch {
	case delta > trendMargin:
		return TrendImproving, delta
	case delta < -trendMargin:
		return TrendDeclining, delta
	default:
		return TrendSteady, delta
	}
}

func halfAverage(entries []models.GradeHistoryEntry) (float64, bool) {
	var sum float64
	components := 0
	for _, c := range models.Components {
		var total float64
		count := 0
		for _, entry := range entries {
			if v := entry.Get(c); v != nil {
				total += *v
				count++
			}
		}
		if count == 0 {
			continue
		}
		sum += total / float64(count)
		components++
	}
	if components == 0 {
		return 0, false
	}
	return sum / float64(components), true
}
