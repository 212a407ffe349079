package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

func fp(v float64) *float64 { return &v }

type roleTokens struct{}

func (roleTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "teacher":
		return &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, FullName: "Ms. Reyes"}, nil
	case "admin":
		return &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin, FullName: "Registrar"}, nil
	case "student":
		return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type courseServiceMock struct {
	courses  map[string]models.Course
	lastUser models.Actor
}

func (m *courseServiceMock) List(ctx context.Context) ([]dto.CourseResponse, error) {
	var out []dto.CourseResponse
	for _, c := range m.courses {
		out = append(out, dto.NewCourseResponse(c))
	}
	return out, nil
}

func (m *courseServiceMock) Get(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &c, nil
}

func (m *courseServiceMock) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	c := models.Course{ID: "new", Name: req.Name, WeightMap: models.DefaultWeights}
	m.courses[c.ID] = c
	return &c, nil
}

func (m *courseServiceMock) UpdateWeights(ctx context.Context, id string, req dto.WeightsRequest, actor models.Actor) (*models.Course, error) {
	m.lastUser = actor
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.WeightMap = req.WeightMap()
	return c, nil
}

func (m *courseServiceMock) Finalize(ctx context.Context, id string, actor models.Actor) (*models.Course, error) {
	m.lastUser = actor
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Finalized = true
	return c, nil
}

func (m *courseServiceMock) Reopen(ctx context.Context, id string, actor models.Actor) (*models.Course, error) {
	m.lastUser = actor
	return m.Get(ctx, id)
}

type gradeServiceMock struct {
	saved      dto.SaveGradesRequest
	newestSeen bool
}

func (m *gradeServiceMock) Enroll(ctx context.Context, courseID string, req dto.EnrollStudentRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	return &dto.StudentRecordResponse{CourseID: courseID, StudentID: req.StudentID, Status: models.StudentStatusUngraded}, nil
}

func (m *gradeServiceMock) ListRecords(ctx context.Context, courseID string, query dto.RecordQuery) ([]dto.StudentRecordResponse, *models.Pagination, error) {
	return []dto.StudentRecordResponse{{CourseID: courseID, StudentID: "s1"}}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, nil
}

func (m *gradeServiceMock) GetRecord(ctx context.Context, courseID, studentID string) (*dto.StudentRecordResponse, error) {
	return &dto.StudentRecordResponse{CourseID: courseID, StudentID: studentID}, nil
}

func (m *gradeServiceMock) SaveGrades(ctx context.Context, courseID, studentID string, req dto.SaveGradesRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	m.saved = req
	return &dto.StudentRecordResponse{CourseID: courseID, StudentID: studentID, Finals: req.Finals}, nil
}

func (m *gradeServiceMock) SetStatus(ctx context.Context, courseID, studentID string, req dto.SetStatusRequest, actor models.Actor) (*dto.StudentRecordResponse, error) {
	return &dto.StudentRecordResponse{StudentID: studentID, Status: models.StudentStatus(req.Status)}, nil
}

func (m *gradeServiceMock) History(ctx context.Context, courseID, studentID string, newestFirst bool) ([]dto.HistoryEntryResponse, error) {
	m.newestSeen = newestFirst
	return []dto.HistoryEntryResponse{}, nil
}

type analyticsServiceMock struct {
	hit       bool
	threshold *float64
}

func (m *analyticsServiceMock) Statistics(ctx context.Context, courseID string) (*dto.ClassStatisticsResponse, bool, error) {
	return &dto.ClassStatisticsResponse{CourseID: courseID}, m.hit, nil
}

func (m *analyticsServiceMock) Ranking(ctx context.Context, courseID string) ([]dto.RankingEntryResponse, bool, error) {
	return []dto.RankingEntryResponse{{StudentID: "s1", Rank: 1}}, m.hit, nil
}

func (m *analyticsServiceMock) AtRisk(ctx context.Context, courseID string, threshold *float64) ([]dto.AtRiskResponse, bool, error) {
	m.threshold = threshold
	return []dto.AtRiskResponse{}, m.hit, nil
}

func (m *analyticsServiceMock) SystemMetrics() models.SystemMetrics {
	return models.SystemMetrics{RequestsTotal: 7}
}

type reportServiceMock struct{}

func (reportServiceMock) StudentReport(ctx context.Context, courseID, studentID string) (*dto.StudentReportResponse, error) {
	return &dto.StudentReportResponse{CourseID: courseID, StudentID: studentID}, nil
}

func (reportServiceMock) StudentReportPDF(ctx context.Context, courseID, studentID string) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "algebra-s1-report.pdf", nil
}

type exportServiceMock struct {
	imported []byte
	format   models.ExportFormat
	req      dto.ExportRequest
}

func (m *exportServiceMock) Export(ctx context.Context, courseID string, req dto.ExportRequest, actor models.Actor) (*dto.ExportResponse, error) {
	m.req = req
	return &dto.ExportResponse{ExportID: "e1", Format: req.Format, Token: "tok", DownloadURL: "/api/v1/export/tok"}, nil
}

func (m *exportServiceMock) Download(ctx context.Context, token string) ([]byte, string, string, error) {
	if token != "tok" {
		return nil, "", "", appErrors.Clone(appErrors.ErrExpired, "download link expired")
	}
	return []byte("Student ID\n"), "algebra.csv", "text/csv", nil
}

func (m *exportServiceMock) Import(ctx context.Context, courseID string, format models.ExportFormat, r io.Reader, actor models.Actor) (*dto.ImportResponse, error) {
	m.format = format
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.imported = data
	return &dto.ImportResponse{Processed: 1, Updated: 1, Errors: []dto.ImportRowError{}}, nil
}

type settingsServiceMock struct {
	updated bool
}

func (m *settingsServiceMock) Grading(ctx context.Context) (models.GradingSettings, error) {
	return models.GradingSettings{DefaultWeights: models.DefaultWeights, PassThreshold: 60}, nil
}

func (m *settingsServiceMock) Update(ctx context.Context, req dto.UpdateGradingSettingsRequest, actor models.Actor) (models.GradingSettings, error) {
	m.updated = true
	return m.Grading(ctx)
}

type fixture struct {
	router    *gin.Engine
	courses   *courseServiceMock
	grades    *gradeServiceMock
	analytics *analyticsServiceMock
	exports   *exportServiceMock
	settings  *settingsServiceMock
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		courses:   &courseServiceMock{courses: map[string]models.Course{"c1": {ID: "c1", Name: "Algebra I", WeightMap: models.DefaultWeights}}},
		grades:    &gradeServiceMock{},
		analytics: &analyticsServiceMock{},
		exports:   &exportServiceMock{},
		settings:  &settingsServiceMock{},
	}
	f.router = gin.New()
	RegisterRoutes(f.router.Group("/api/v1"), Handlers{
		Courses:   NewCourseHandler(f.courses),
		Records:   NewStudentRecordHandler(f.grades),
		Analytics: NewAnalyticsHandler(f.analytics),
		Reports:   NewReportHandler(reportServiceMock{}),
		Exports:   NewExportHandler(f.exports, 1024),
		Settings:  NewSettingsHandler(f.settings),
	}, roleTokens{})
	return f
}

func (f *fixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage        `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestRoutesRequireStaffToken(t *testing.T) {
	f := newFixture()

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/courses", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/courses", "student", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/courses", "teacher", nil).Code)
}

func TestCourseHandlerLifecycle(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/v1/courses", "teacher", dto.CreateCourseRequest{Name: "Physics"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/courses/c1", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var course dto.CourseResponse
	decodeData(t, rec, &course)
	assert.True(t, course.Weights.Valid)

	rec = f.do(http.MethodPut, "/api/v1/courses/c1/weights", "teacher", dto.WeightsRequest{Assignments: fp(0.5), Quizzes: fp(0.5), Midterm: fp(0), Finals: fp(0)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ms. Reyes", f.courses.lastUser.Name)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/courses/c1/finalize", "teacher", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/v1/courses/c1/reopen", "teacher", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/courses/c1/reopen", "admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/courses/missing", "teacher", nil).Code)
}

func TestCourseHandlerRejectsMalformedJSON(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer teacher")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentRecordHandler(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/v1/courses/c1/students?status=passing&page=1", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_count":1`)

	rec = f.do(http.MethodPost, "/api/v1/courses/c1/students", "teacher", dto.EnrollStudentRequest{StudentID: "s2", StudentName: "Ben"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/courses/c1/students/s1/grades", "teacher", map[string]interface{}{"finals": 91.5, "comments": "ok"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.grades.saved.Finals)
	assert.Equal(t, 91.5, *f.grades.saved.Finals)
	assert.Nil(t, f.grades.saved.Midterm)

	rec = f.do(http.MethodPut, "/api/v1/courses/c1/students/s1/status", "teacher", dto.SetStatusRequest{Status: "withdrawn"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"withdrawn"`)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/courses/c1/students/s1/history?order=newest", "teacher", nil).Code)
	assert.True(t, f.grades.newestSeen)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/courses/c1/students/s1/history?order=sideways", "teacher", nil).Code)
}

func TestAnalyticsHandlerCacheMeta(t *testing.T) {
	f := newFixture()
	f.analytics.hit = true

	rec := f.do(http.MethodGet, "/api/v1/courses/c1/analytics/ranking", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)

	rec = f.do(http.MethodGet, "/api/v1/courses/c1/analytics/at-risk?threshold=65", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.analytics.threshold)
	assert.Equal(t, 65.0, *f.analytics.threshold)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/courses/c1/analytics/at-risk?threshold=high", "teacher", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/courses/c1/analytics/stats", "teacher", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/analytics/system", "teacher", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/analytics/system", "admin", nil).Code)
}

func TestReportHandlerFormats(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/v1/courses/c1/students/s1/report", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"studentId":"s1"`)

	rec = f.do(http.MethodGet, "/api/v1/courses/c1/students/s1/report?format=pdf", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "algebra-s1-report.pdf")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/courses/c1/students/s1/report?format=doc", "teacher", nil).Code)
}

func TestExportHandlerExportAndDownload(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/v1/courses/c1/export", "teacher", dto.ExportRequest{Format: "xlsx"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "xlsx", f.exports.req.Format)

	rec = f.do(http.MethodPost, "/api/v1/courses/c1/export?format=pdf", "teacher", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pdf", f.exports.req.Format)

	rec = f.do(http.MethodGet, "/api/v1/export/tok", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Student ID\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "algebra.csv")

	assert.Equal(t, http.StatusGone, f.do(http.MethodGet, "/api/v1/export/stale", "", nil).Code)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestExportHandlerImport(t *testing.T) {
	f := newFixture()
	body, contentType := multipartBody(t, "grades.CSV", []byte("Student ID,Finals\ns1,90\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/c1/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer teacher")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, f.exports.format)
	assert.Equal(t, "Student ID,Finals\ns1,90\n", string(f.exports.imported))
	assert.Contains(t, rec.Body.String(), `"updated":1`)
}

func TestExportHandlerImportRejectsUnknownFormat(t *testing.T) {
	f := newFixture()
	body, contentType := multipartBody(t, "grades.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/c1/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer teacher")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.exports.imported)
}

func TestSettingsHandler(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/v1/settings/grading", "teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings dto.GradingSettingsResponse
	decodeData(t, rec, &settings)
	assert.Equal(t, 60.0, settings.PassThreshold)

	payload := dto.UpdateGradingSettingsRequest{PassThreshold: fp(65)}
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/api/v1/settings/grading", "teacher", payload).Code)
	assert.False(t, f.settings.updated)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/v1/settings/grading", "admin", payload).Code)
	assert.True(t, f.settings.updated)
}
