package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

func ptrFloat(v float64) *float64 {
	return &v
}

var sampleWeights = models.WeightMap{Assignments: 0.3, Quizzes: 0.2, Midterm: 0.25, Finals: 0.25}

func TestScoreToGrade(t *testing.T) {
	cases := []struct {
		score *float64
		scale Scale
		want  string
	}{
		{ptrFloat(93), DefaultLetterScale, "A"},
		{ptrFloat(92.9), DefaultLetterScale, "A-"},
		{ptrFloat(100), DefaultLetterScale, "A+"},
		{ptrFloat(60), DefaultLetterScale, "D-"},
		{ptrFloat(59.99), DefaultLetterScale, "F"},
		{ptrFloat(-5), DefaultLetterScale, "F"},
		{nil, DefaultLetterScale, NotAvailable},
		{ptrFloat(95), DefaultNumericScale, "1.00"},
		{ptrFloat(70), DefaultNumericScale, "3.50"},
		{ptrFloat(64), DefaultNumericScale, "5.00"},
		{ptrFloat(71), DefaultNumericScale, "3.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ScoreToGrade(tc.score, tc.scale))
	}
}

func TestScoreToGradeFallsBackToLastEntry(t *testing.T) {
	scale := Scale{{Label: "PASS", Min: 75}, {Label: "FAIL", Min: 50}}
	assert.Equal(t, "FAIL", ScoreToGrade(ptrFloat(10), scale))
	assert.Equal(t, NotAvailable, ScoreToGrade(ptrFloat(10), nil))
}

func TestScaleValidate(t *testing.T) {
	require.NoError(t, DefaultLetterScale.Validate())
	require.NoError(t, DefaultNumericScale.Validate())
	assert.Error(t, Scale{}.Validate())
	assert.Error(t, Scale{{Label: "A", Min: 90}, {Label: "B", Min: 90}}.Validate())
	assert.Error(t, Scale{{Label: "B", Min: 80}, {Label: "A", Min: 90}}.Validate())
}

func TestComputeWeightedExcludesMissingComponents(t *testing.T) {
	scores := models.ComponentScores{Assignments: ptrFloat(90), Quizzes: ptrFloat(80)}
	result := ComputeWeighted(scores, sampleWeights)
	require.NotNil(t, result)
	assert.InDelta(t, 86.0, *result, 1e-9)
}

func TestComputeWeightedMidtermOnlyKeepsRawScore(t *testing.T) {
	result := ComputeWeighted(models.ComponentScores{Midterm: ptrFloat(72)}, sampleWeights)
	require.NotNil(t, result)
	assert.InDelta(t, 72.0, *result, 1e-9)
}

func TestComputeWeightedNoComponents(t *testing.T) {
	assert.Nil(t, ComputeWeighted(models.ComponentScores{}, sampleWeights))
	assert.Nil(t, ComputeWeighted(models.ComponentScores{Quizzes: ptrFloat(50)}, models.WeightMap{Assignments: 1}))
}

func TestComputeWeightedDoesNotRound(t *testing.T) {
	scores := models.ComponentScores{Assignments: ptrFloat(88.333), Quizzes: ptrFloat(91.111), Midterm: ptrFloat(77.777), Finals: ptrFloat(83.5)}
	result := ComputeWeighted(scores, sampleWeights)
	require.NotNil(t, result)
	assert.NotEqual(t, Round2(*result), *result)
	assert.Equal(t, 85.04, Round2(*result))
}

func TestWeightMapValid(t *testing.T) {
	assert.True(t, sampleWeights.Valid())
	assert.True(t, models.WeightMap{Assignments: 0.3, Quizzes: 0.2, Midterm: 0.25, Finals: 0.255}.Valid())
	assert.False(t, models.WeightMap{Assignments: 0.3, Quizzes: 0.2, Midterm: 0.25, Finals: 0.3}.Valid())
	assert.False(t, models.WeightMap{Assignments: 1.5, Quizzes: -0.5}.Valid())
}

func TestValidateScores(t *testing.T) {
	require.NoError(t, ValidateScores(models.ComponentScores{Assignments: ptrFloat(0), Finals: ptrFloat(100)}))
	err := ValidateScores(models.ComponentScores{Quizzes: ptrFloat(101)})
	require.Error(t, err)
	var rangeErr *ScoreRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, models.ComponentQuizzes, rangeErr.Component)
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]float64{90, 60, 80, 70}, DefaultPassThreshold)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 75.0, stats.Average, 1e-9)
	assert.InDelta(t, 75.0, stats.Median, 1e-9)
	assert.InDelta(t, 11.18, stats.StdDev, 0.005)
	assert.InDelta(t, 100.0, stats.PassRate, 1e-9)
	assert.Equal(t, 90.0, stats.Highest)
	assert.Equal(t, 60.0, stats.Lowest)
}

func TestComputeStatsOddAndEmpty(t *testing.T) {
	stats := ComputeStats([]float64{50, 95, 70}, DefaultPassThreshold)
	assert.Equal(t, 70.0, stats.Median)
	assert.InDelta(t, 66.6667, stats.PassRate, 0.001)

	empty := ComputeStats(nil, DefaultPassThreshold)
	assert.Equal(t, Stats{}, empty)
}

func TestRankCompetitionRanking(t *testing.T) {
	ranked := Rank([]RankInput{{ID: "1", Score: 90}, {ID: "2", Score: 90}, {ID: "3", Score: 70}})
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 1, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
	assert.Equal(t, "1", ranked[0].ID)
	assert.Equal(t, "2", ranked[1].ID)
	assert.Equal(t, 100, ranked[0].Percentile)
	assert.Equal(t, 33, ranked[2].Percentile)
}

func TestRankSortsDescendingAndKeepsTieOrder(t *testing.T) {
	ranked := Rank([]RankInput{{ID: "low", Score: 55}, {ID: "b", Score: 80}, {ID: "a", Score: 80}, {ID: "top", Score: 99}})
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"top", "b", "a", "low"}, ids)
	assert.Equal(t, 2, ranked[2].Rank)
	assert.Equal(t, 4, ranked[3].Rank)
	assert.Empty(t, Rank(nil))
}

func TestRankRecordsZeroScorePolicy(t *testing.T) {
	records := []models.StudentScoreRecord{
		{StudentID: "graded", ComponentScores: models.ComponentScores{Finals: ptrFloat(80)}},
		{StudentID: "empty"},
	}
	assert.Len(t, RankRecords(records, sampleWeights, ExcludeUngraded), 1)

	ranked := RankRecords(records, sampleWeights, CountUngradedAsZero)
	require.Len(t, ranked, 2)
	assert.Equal(t, "empty", ranked[1].ID)
	assert.Equal(t, 0.0, ranked[1].Score)
}

func TestFindAtRiskWeakComponentOnly(t *testing.T) {
	weights := models.WeightMap{Assignments: 0.5, Quizzes: 0.5}
	records := []models.StudentScoreRecord{
		{StudentID: "s1", StudentName: "Ana", ComponentScores: models.ComponentScores{Assignments: ptrFloat(65), Quizzes: ptrFloat(95)}},
		{StudentID: "s2", StudentName: "Ben", ComponentScores: models.ComponentScores{Assignments: ptrFloat(85), Quizzes: ptrFloat(90)}},
	}
	flagged := FindAtRisk(records, weights, DefaultAtRiskThreshold)
	require.Len(t, flagged, 1)
	assert.Equal(t, "s1", flagged[0].StudentID)
	assert.InDelta(t, 80.0, flagged[0].Overall, 1e-9)
	assert.False(t, flagged[0].OverallFlag)
	assert.Equal(t, []WeakArea{{Component: models.ComponentAssignments, Score: 65, Gap: 5}}, flagged[0].WeakAreas)
}

func TestFindAtRiskOrdersMostAtRiskFirst(t *testing.T) {
	records := []models.StudentScoreRecord{
		{StudentID: "mid", ComponentScores: models.ComponentScores{Finals: ptrFloat(65)}},
		{StudentID: "worst", ComponentScores: models.ComponentScores{Finals: ptrFloat(40)}},
		{StudentID: "ungraded"},
	}
	flagged := FindAtRisk(records, sampleWeights, 70)
	require.Len(t, flagged, 2)
	assert.Equal(t, "worst", flagged[0].StudentID)
	assert.True(t, flagged[0].OverallFlag)
	assert.InDelta(t, 30.0, flagged[0].OverallGap, 1e-9)
}

func TestClassifyTrend(t *testing.T) {
	history := []models.GradeHistoryEntry{
		{ComponentScores: models.ComponentScores{Assignments: ptrFloat(70)}},
		{ComponentScores: models.ComponentScores{Assignments: ptrFloat(90)}},
	}
	trend, delta := ClassifyTrend(history)
	assert.Equal(t, TrendImproving, trend)
	assert.InDelta(t, 20.0, delta, 1e-9)

	trend, _ = ClassifyTrend(NewestFirst(history))
	assert.Equal(t, TrendDeclining, trend)

	trend, _ = ClassifyTrend(history[:1])
	assert.Equal(t, TrendSteady, trend)
	trend, _ = ClassifyTrend(nil)
	assert.Equal(t, TrendSteady, trend)
}

func TestClassifyTrendCeilSplit(t *testing.T) {
	history := []models.GradeHistoryEntry{
		{ComponentScores: models.ComponentScores{Quizzes: ptrFloat(80)}},
		{ComponentScores: models.ComponentScores{Quizzes: ptrFloat(80)}},
		{ComponentScores: models.ComponentScores{Quizzes: ptrFloat(82)}},
	}
	trend, delta := ClassifyTrend(history)
	assert.Equal(t, TrendSteady, trend)
	assert.InDelta(t, 2.0, delta, 1e-9)
}

func TestBuildReport(t *testing.T) {
	course := models.Course{ID: "c1", Name: "Algebra", Section: "A", WeightMap: sampleWeights}
	student := models.StudentScoreRecord{
		StudentID:   "s1",
		StudentName: "Ana",
		Status:      models.StudentStatusFailing,
		ComponentScores: models.ComponentScores{
			Assignments: ptrFloat(95),
			Quizzes:     ptrFloat(50),
			Midterm:     ptrFloat(70),
		},
		History: []models.GradeHistoryEntry{
			{ComponentScores: models.ComponentScores{Assignments: ptrFloat(90)}},
			{ComponentScores: models.ComponentScores{Assignments: ptrFloat(70)}},
		},
	}
	classmate := models.StudentScoreRecord{
		StudentID:       "s2",
		ComponentScores: models.ComponentScores{Assignments: ptrFloat(75), Quizzes: ptrFloat(70), Midterm: ptrFloat(70)},
	}
	report := BuildReport(student, course, []models.StudentScoreRecord{student, classmate}, ReportOptions{})

	require.NotNil(t, report.Overall)
	assert.InDelta(t, (95*0.3+50*0.2+70*0.25)/0.75, *report.Overall, 1e-9)
	assert.Equal(t, "C", report.LetterGrade)
	assert.Equal(t, "2.75", report.NumericGrade)
	require.Len(t, report.Components, 3)
	assert.Equal(t, models.ComponentAssignments, report.Components[0].Component)
	assert.InDelta(t, 85.0, report.Components[0].ClassAverage, 1e-9)
	assert.InDelta(t, 30.0, report.Components[0].WeightPercent, 1e-9)
	assert.Equal(t, "Excellent", report.Components[0].Performance)
	assert.Equal(t, []models.Component{models.ComponentAssignments}, report.Strengths)
	assert.Equal(t, []models.Component{models.ComponentQuizzes}, report.Weaknesses)
	assert.Equal(t, TrendDeclining, report.Trend)
	assert.Equal(t, []string{
		componentRecommendations[models.ComponentQuizzes],
		failingRecommendation,
		decliningRecommendation,
	}, report.Recommendations)
}

func TestBuildReportZeroClassAverage(t *testing.T) {
	course := models.Course{ID: "c1", WeightMap: sampleWeights}
	student := models.StudentScoreRecord{StudentID: "s1", ComponentScores: models.ComponentScores{Finals: ptrFloat(0)}}
	report := BuildReport(student, course, []models.StudentScoreRecord{student}, ReportOptions{})
	require.Len(t, report.Components, 1)
	assert.Equal(t, 100.0, report.Components[0].RelativePercent)
	assert.Equal(t, TrendSteady, report.Trend)
	assert.Equal(t, []string{steadyRecommendation}, report.Recommendations)
}

func TestAppendSnapshotIsAppendOnly(t *testing.T) {
	record := &models.StudentScoreRecord{ID: "r1", ComponentScores: models.ComponentScores{Midterm: ptrFloat(70)}, Comments: "first"}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, AppendSnapshot(record, SnapshotOf(*record, "t.garcia", at)))
	before := History(record)
	*record.Midterm = 99

	require.NoError(t, AppendSnapshot(record, SnapshotOf(*record, "t.garcia", at.Add(time.Hour))))
	history := History(record)
	require.Len(t, history, 2)
	require.Len(t, before, 1)
	assert.Equal(t, 70.0, *history[0].Midterm)
	assert.Equal(t, 99.0, *history[1].Midterm)
	assert.Equal(t, "r1", history[0].RecordID)
	assert.Equal(t, "t.garcia", history[1].Teacher)
	assert.Equal(t, at.Add(time.Hour), NewestFirst(history)[0].Timestamp)

	assert.ErrorIs(t, AppendSnapshot(nil, models.GradeHistoryEntry{}), ErrNilRecord)
}

func TestDeriveStatus(t *testing.T) {
	full := models.ComponentScores{Assignments: ptrFloat(80), Quizzes: ptrFloat(80), Midterm: ptrFloat(80), Finals: ptrFloat(80)}
	failing := models.ComponentScores{Assignments: ptrFloat(50), Quizzes: ptrFloat(50), Midterm: ptrFloat(50), Finals: ptrFloat(50)}

	assert.Equal(t, models.StudentStatusUngraded, DeriveStatus(models.ComponentScores{}, sampleWeights, 60, models.StudentStatusUngraded))
	assert.Equal(t, models.StudentStatusInProgress, DeriveStatus(models.ComponentScores{Quizzes: ptrFloat(90)}, sampleWeights, 60, models.StudentStatusUngraded))
	assert.Equal(t, models.StudentStatusInProgress, DeriveStatus(models.ComponentScores{Finals: ptrFloat(90)}, sampleWeights, 60, models.StudentStatusUngraded))
	assert.Equal(t, models.StudentStatusPassing, DeriveStatus(full, sampleWeights, 60, models.StudentStatusInProgress))
	assert.Equal(t, models.StudentStatusFailing, DeriveStatus(failing, sampleWeights, 60, models.StudentStatusPassing))
	assert.Equal(t, models.StudentStatusWithdrawn, DeriveStatus(full, sampleWeights, 60, models.StudentStatusWithdrawn))
	assert.Equal(t, models.StudentStatusPassing, DeriveStatus(models.ComponentScores{Finals: ptrFloat(75)}, models.WeightMap{Finals: 1}, 60, models.StudentStatusUngraded))
}

func TestComputeClassStatistics(t *testing.T) {
	records := []models.StudentScoreRecord{
		{StudentID: "a", ComponentScores: models.ComponentScores{Assignments: ptrFloat(90), Finals: ptrFloat(70)}},
		{StudentID: "b", ComponentScores: models.ComponentScores{Assignments: ptrFloat(60)}},
		{StudentID: "c"},
	}
	stats := ComputeClassStatistics(records, sampleWeights, ExcludeUngraded, DefaultPassThreshold)
	assert.Equal(t, 3, stats.Enrolled)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 2, stats.Overall.Count)
	assert.Equal(t, 2, stats.Components[models.ComponentAssignments].Count)
	assert.InDelta(t, 75.0, stats.Components[models.ComponentAssignments].Average, 1e-9)
	assert.Equal(t, 0, stats.Components[models.ComponentQuizzes].Count)

	zero := ComputeClassStatistics(records, sampleWeights, CountUngradedAsZero, DefaultPassThreshold)
	assert.Equal(t, 3, zero.Overall.Count)
	assert.Equal(t, 0.0, zero.Overall.Lowest)
}
