package dto

import (
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// StatsResponse is a rounded grading.Stats.
type StatsResponse struct {
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Lowest   float64 `json:"lowest"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"stdDev"`
	PassRate float64 `json:"passRate"`
}

func newStatsResponse(s grading.Stats) StatsResponse {
	return StatsResponse{
		Count:    s.Count,
		Average:  grading.Round2(s.Average),
		Highest:  grading.Round2(s.Highest),
		Lowest:   grading.Round2(s.Lowest),
		Median:   grading.Round2(s.Median),
		StdDev:   grading.Round2(s.StdDev),
		PassRate: grading.Round2(s.PassRate),
	}
}

// ClassStatisticsResponse is returned by GET /courses/:id/analytics/stats.
type ClassStatisticsResponse struct {
	CourseID      string                             `json:"courseId"`
	Policy        string                             `json:"zeroScorePolicy"`
	PassThreshold float64                            `json:"passThreshold"`
	Enrolled      int                                `json:"enrolled"`
	Excluded      int                                `json:"excluded"`
	Overall       StatsResponse                      `json:"overall"`
	Components    map[models.Component]StatsResponse `json:"components"`
}

// NewClassStatisticsResponse rounds the engine output.
func NewClassStatisticsResponse(courseID string, policy grading.ZeroScorePolicy, pass float64, s grading.ClassStatistics) ClassStatisticsResponse {
	components := make(map[models.Component]StatsResponse, len(s.Components))
	for c, stats := range s.Components {
		components[c] = newStatsResponse(stats)
	}
	return ClassStatisticsResponse{
		CourseID:      courseID,
		Policy:        string(policy),
		PassThreshold: pass,
		Enrolled:      s.Enrolled,
		Excluded:      s.Excluded,
		Overall:       newStatsResponse(s.Overall),
		Components:    components,
	}
}

// RankingEntryResponse is one row of the class ranking.
type RankingEntryResponse struct {
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Percentile  int     `json:"percentile"`
}

// NewRankingResponse rounds scores after ranking so ties are decided on full precision.
func NewRankingResponse(ranked []grading.Ranked) []RankingEntryResponse {
	out := make([]RankingEntryResponse, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, RankingEntryResponse{
			StudentID:   r.ID,
			StudentName: r.Name,
			Score:       grading.Round2(r.Score),
			Rank:        r.Rank,
			Percentile:  r.Percentile,
		})
	}
	return out
}

// WeakAreaResponse is a component below the at-risk threshold.
type WeakAreaResponse struct {
	Component models.Component `json:"component"`
	Score     float64          `json:"score"`
	Gap       float64          `json:"gap"`
}

// AtRiskResponse describes one flagged student.
type AtRiskResponse struct {
	StudentID   string               `json:"studentId"`
	StudentName string               `json:"studentName"`
	Overall     float64              `json:"overall"`
	OverallGap  float64              `json:"overallGap"`
	OverallFlag bool                 `json:"overallFlagged"`
	WeakAreas   []WeakAreaResponse   `json:"weakAreas"`
	Status      models.StudentStatus `json:"status"`
}

// AtRiskQuery overrides the configured at-risk threshold.
type AtRiskQuery struct {
	Threshold *float64 `form:"threshold" validate:"omitempty,gte=0,lte=100"`
}

// NewAtRiskResponse rounds the engine output.
func NewAtRiskResponse(students []grading.AtRiskStudent) []AtRiskResponse {
	out := make([]AtRiskResponse, 0, len(students))
	for _, s := range students {
		areas := make([]WeakAreaResponse, 0, len(s.WeakAreas))
		for _, a := range s.WeakAreas {
			areas = append(areas, WeakAreaResponse{Component: a.Component, Score: grading.Round2(a.Score), Gap: grading.Round2(a.Gap)})
		}
		out = append(out, AtRiskResponse{
			StudentID:   s.StudentID,
			StudentName: s.StudentName,
			Overall:     grading.Round2(s.Overall),
			OverallGap:  grading.Round2(s.OverallGap),
			OverallFlag: s.OverallFlag,
			WeakAreas:   areas,
			Status:      s.CurrentStatus,
		})
	}
	return out
}

// ComponentBreakdownResponse is one component line of a student report.
type ComponentBreakdownResponse struct {
	Component       models.Component `json:"component"`
	Score           float64          `json:"score"`
	ClassAverage    float64          `json:"classAverage"`
	WeightPercent   float64          `json:"weightPercent"`
	RelativePercent float64          `json:"relativePercent"`
	Performance     string           `json:"performance"`
}

// StudentReportResponse is the rounded student report.
type StudentReportResponse struct {
	StudentID       string                       `json:"studentId"`
	StudentName     string                       `json:"studentName"`
	CourseID        string                       `json:"courseId"`
	CourseName      string                       `json:"courseName"`
	Section         string                       `json:"section"`
	Status          models.StudentStatus         `json:"status"`
	Overall         *float64                     `json:"overall"`
	LetterGrade     string                       `json:"letterGrade"`
	NumericGrade    string                       `json:"numericGrade"`
	Components      []ComponentBreakdownResponse `json:"components"`
	Strengths       []models.Component           `json:"strengths"`
	Weaknesses      []models.Component           `json:"weaknesses"`
	Recommendations []string                     `json:"recommendations"`
	Trend           grading.Trend                `json:"trend"`
	TrendDelta      float64                      `json:"trendDelta"`
	Comments        string                       `json:"comments"`
}

// NewStudentReportResponse rounds a built report.
func NewStudentReportResponse(r grading.StudentReport) StudentReportResponse {
	components := make([]ComponentBreakdownResponse, 0, len(r.Components))
	for _, c := range r.Components {
		components = append(components, ComponentBreakdownResponse{
			Component:       c.Component,
			Score:           grading.Round2(c.Score),
			ClassAverage:    grading.Round2(c.ClassAverage),
			WeightPercent:   grading.Round2(c.WeightPercent),
			RelativePercent: grading.Round2(c.RelativePercent),
			Performance:     c.Performance,
		})
	}
	strengths := r.Strengths
	if strengths == nil {
		strengths = []models.Component{}
	}
	weaknesses := r.Weaknesses
	if weaknesses == nil {
		weaknesses = []models.Component{}
	}
	return StudentReportResponse{
		StudentID:       r.StudentID,
		StudentName:     r.StudentName,
		CourseID:        r.CourseID,
		CourseName:      r.CourseName,
		Section:         r.Section,
		Status:          r.Status,
		Overall:         grading.Round2Ptr(r.Overall),
		LetterGrade:     r.LetterGrade,
		NumericGrade:    r.NumericGrade,
		Components:      components,
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		Recommendations: r.Recommendations,
		Trend:           r.Trend,
		TrendDelta:      grading.Round2(r.TrendDelta),
		Comments:        r.Comments,
	}
}
