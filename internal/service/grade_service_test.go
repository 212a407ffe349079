package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

func newGradeFixture(courses ...models.Course) (*GradeService, *memoryGradebook, *stubCacheRepo) {
	book := newMemoryGradebook(courses...)
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	settings := NewSettingsService(&settingsRepoStub{}, nil, zap.NewNop(), models.GradingSettings{})
	svc := NewGradeService(recordStore{book}, book, settings, cacheSvc, NewMetricsService(), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, book, cacheRepo
}

func TestGradeServiceEnroll(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	ctx := context.Background()

	resp, err := svc.Enroll(ctx, "c1", dto.EnrollStudentRequest{StudentID: "s1", StudentName: "Ana Cruz"}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusUngraded, resp.Status)
	assert.Nil(t, resp.FinalGrade)
	assert.Equal(t, "N/A", resp.LetterGrade)
	assert.Len(t, book.records, 1)

	_, err = svc.Enroll(ctx, "c1", dto.EnrollStudentRequest{StudentID: "s1", StudentName: "Ana Cruz"}, teacherActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
}

func TestGradeServiceSaveGradesRecordsHistory(t *testing.T) {
	svc, book, cacheRepo := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})
	ctx := context.Background()

	resp, err := svc.SaveGrades(ctx, "c1", "s1", dto.SaveGradesRequest{Midterm: fp(80)}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInProgress, resp.Status)
	require.NotNil(t, resp.FinalGrade)
	assert.InDelta(t, 80, *resp.FinalGrade, 1e-9)

	resp, err = svc.SaveGrades(ctx, "c1", "s1", dto.SaveGradesRequest{
		Assignments: fp(90), Quizzes: fp(85), Midterm: fp(80), Finals: fp(88), Comments: "  steady  ",
	}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusPassing, resp.Status)
	require.NotNil(t, resp.FinalGrade)
	assert.InDelta(t, 86.0, *resp.FinalGrade, 1e-9)
	assert.Equal(t, "steady", resp.Comments)

	history, err := svc.History(ctx, "c1", "s1", false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].Midterm)
	require.NotNil(t, history[1].Midterm)
	assert.InDelta(t, 80, *history[1].Midterm, 1e-9)
	assert.Equal(t, teacherActor.Name, history[1].Teacher)
	assert.NotEmpty(t, cacheRepo.invalidated)
}

func TestGradeServiceIdenticalSaveLeavesNoHistory(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})
	ctx := context.Background()
	req := dto.SaveGradesRequest{Quizzes: fp(70), Comments: "quiz only"}

	_, err := svc.SaveGrades(ctx, "c1", "s1", req, teacherActor)
	require.NoError(t, err)
	_, _, changed, err := svc.saveGrades(ctx, "c1", "s1", req, teacherActor)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, book.history["rec-s1"], 1)
}

func TestGradeServiceRejectsOutOfRangeScore(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})

	_, err := svc.SaveGrades(context.Background(), "c1", "s1", dto.SaveGradesRequest{Finals: fp(101)}, teacherActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Zero(t, book.mutateFn)
}

func TestGradeServiceFinalizedCourse(t *testing.T) {
	course := algebraCourse()
	course.Finalized = true
	svc, book, _ := newGradeFixture(course)
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})
	ctx := context.Background()

	_, err := svc.SaveGrades(ctx, "c1", "s1", dto.SaveGradesRequest{Finals: fp(75)}, teacherActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, errorCode(err))

	resp, err := svc.SaveGrades(ctx, "c1", "s1", dto.SaveGradesRequest{Finals: fp(75)}, adminActor)
	require.NoError(t, err)
	require.NotNil(t, resp.Finals)
	assert.InDelta(t, 75, *resp.Finals, 1e-9)
}

func TestGradeServiceSaveGradesMissingRecord(t *testing.T) {
	svc, _, _ := newGradeFixture(algebraCourse())

	_, err := svc.SaveGrades(context.Background(), "c1", "ghost", dto.SaveGradesRequest{Finals: fp(75)}, teacherActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestGradeServiceManualStatusSurvivesSaves(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})
	ctx := context.Background()

	resp, err := svc.SetStatus(ctx, "c1", "s1", dto.SetStatusRequest{Status: "withdrawn"}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusWithdrawn, resp.Status)
	assert.Empty(t, book.history["rec-s1"])

	resp, err = svc.SaveGrades(ctx, "c1", "s1", dto.SaveGradesRequest{
		Assignments: fp(50), Quizzes: fp(50), Midterm: fp(50), Finals: fp(50),
	}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusWithdrawn, resp.Status)

	resp, err = svc.SetStatus(ctx, "c1", "s1", dto.SetStatusRequest{Status: dto.StatusAuto}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusFailing, resp.Status)
}

func TestGradeServiceListRecords(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz", Status: models.StudentStatusPassing,
		ComponentScores: models.ComponentScores{Assignments: fp(95), Quizzes: fp(95), Midterm: fp(95), Finals: fp(95)}})
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s2", StudentName: "Ben Diaz"})

	items, pagination, err := svc.ListRecords(context.Background(), "c1", dto.RecordQuery{Status: "passing"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].LetterGrade)
	assert.Equal(t, "1.00", items[0].NumericGrade)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestGradeServiceHistoryNewestFirst(t *testing.T) {
	svc, book, _ := newGradeFixture(algebraCourse())
	book.addRecord(models.StudentScoreRecord{CourseID: "c1", StudentID: "s1", StudentName: "Ana Cruz"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	book.history["rec-s1"] = []models.GradeHistoryEntry{
		{ID: "h1", Timestamp: base, Teacher: "first"},
		{ID: "h2", Timestamp: base.Add(time.Hour), Teacher: "second"},
	}

	entries, err := svc.History(context.Background(), "c1", "s1", true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Teacher)
}
