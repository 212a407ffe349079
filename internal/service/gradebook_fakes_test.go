package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/repository"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

func fp(v float64) *float64 { return &v }

var (
	teacherActor = models.Actor{ID: "t1", Name: "Ms. Reyes", Role: models.RoleTeacher}
	adminActor   = models.Actor{ID: "a1", Name: "Registrar", Role: models.RoleAdmin}
)

// memoryGradebook stores courses, records and history in maps.
type memoryGradebook struct {
	courses  map[string]models.Course
	records  map[string]*models.StudentScoreRecord
	history  map[string][]models.GradeHistoryEntry
	err      error
	loads    int
	mutateFn int
}

func newMemoryGradebook(courses ...models.Course) *memoryGradebook {
	m := &memoryGradebook{
		courses: map[string]models.Course{},
		records: map[string]*models.StudentScoreRecord{},
		history: map[string][]models.GradeHistoryEntry{},
	}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func recordKey(courseID, studentID string) string { return courseID + "/" + studentID }

func (m *memoryGradebook) addRecord(r models.StudentScoreRecord) {
	if r.ID == "" {
		r.ID = "rec-" + r.StudentID
	}
	if r.Status == "" {
		r.Status = models.StudentStatusUngraded
	}
	m.records[recordKey(r.CourseID, r.StudentID)] = &r
}

func (m *memoryGradebook) List(ctx context.Context) ([]models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryGradebook) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *memoryGradebook) Create(ctx context.Context, course *models.Course) error {
	if m.err != nil {
		return m.err
	}
	if course.ID == "" {
		course.ID = "course-" + strings.ToLower(strings.ReplaceAll(course.Name, " ", "-"))
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *memoryGradebook) UpdateWeights(ctx context.Context, id string, weights models.WeightMap, derive repository.StatusDeriver) error {
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.WeightMap = weights
	m.courses[id] = c
	if derive != nil {
		m.rederive(derive, id)
	}
	return nil
}

func (m *memoryGradebook) RederiveStatuses(ctx context.Context, derive repository.StatusDeriver) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rederive(derive, ""), nil
}

func (m *memoryGradebook) rederive(derive repository.StatusDeriver, courseID string) []string {
	seen := map[string]bool{}
	for _, rec := range m.records {
		if rec.Status.Manual() || (courseID != "" && rec.CourseID != courseID) {
			continue
		}
		seen[rec.CourseID] = true
		rec.Status = derive(m.courses[rec.CourseID].WeightMap, *rec)
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *memoryGradebook) SetFinalized(ctx context.Context, id string, finalized bool) error {
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Finalized = finalized
	m.courses[id] = c
	return nil
}

func (m *memoryGradebook) sortedRecords(courseID string) []models.StudentScoreRecord {
	var out []models.StudentScoreRecord
	for _, r := range m.records {
		if r.CourseID == courseID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out
}

func (m *memoryGradebook) Records(ctx context.Context, filter models.RecordFilter) ([]models.StudentScoreRecord, int, error) {
	var out []models.StudentScoreRecord
	for _, r := range m.sortedRecords(filter.CourseID) {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memoryGradebook) FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.StudentScoreRecord, error) {
	r, ok := m.records[recordKey(courseID, studentID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *r
	return &out, nil
}

func (m *memoryGradebook) CreateRecord(ctx context.Context, record *models.StudentScoreRecord) error {
	if _, ok := m.records[recordKey(record.CourseID, record.StudentID)]; ok {
		return repository.ErrDuplicateRecord
	}
	record.ID = "rec-" + record.StudentID
	record.CreatedAt = time.Now()
	m.addRecord(*record)
	return nil
}

func (m *memoryGradebook) Mutate(ctx context.Context, courseID, studentID string, fn repository.RecordMutation) (*models.StudentScoreRecord, error) {
	m.mutateFn++
	stored, ok := m.records[recordKey(courseID, studentID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *stored
	working.ComponentScores = stored.ComponentScores.Clone()
	working.History = nil
	if err := fn(&working); err != nil {
		return nil, err
	}
	for _, entry := range working.History {
		entry.RecordID = working.ID
		m.history[working.ID] = append(m.history[working.ID], entry)
	}
	working.History = nil
	*stored = working
	out := working
	return &out, nil
}

func (m *memoryGradebook) ListHistory(ctx context.Context, recordID string) ([]models.GradeHistoryEntry, error) {
	return append([]models.GradeHistoryEntry(nil), m.history[recordID]...), nil
}

func (m *memoryGradebook) Gradebook(ctx context.Context, courseID string, withHistory bool) (*models.Course, []models.StudentScoreRecord, error) {
	m.loads++
	if m.err != nil {
		return nil, nil, m.err
	}
	c, ok := m.courses[courseID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	records := m.sortedRecords(courseID)
	if withHistory {
		for i := range records {
			records[i].History = append([]models.GradeHistoryEntry(nil), m.history[records[i].ID]...)
		}
	}
	return &c, records, nil
}

// recordStore adapts memoryGradebook to the record repository method names.
type recordStore struct{ *memoryGradebook }

func (r recordStore) List(ctx context.Context, filter models.RecordFilter) ([]models.StudentScoreRecord, int, error) {
	return r.Records(ctx, filter)
}

func (r recordStore) Create(ctx context.Context, record *models.StudentScoreRecord) error {
	return r.CreateRecord(ctx, record)
}

type settingsRepoStub struct {
	items map[string]models.Setting
	err   error
}

func (s *settingsRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Setting
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *settingsRepoStub) BulkUpsert(ctx context.Context, settings []models.Setting) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = map[string]models.Setting{}
	}
	for _, item := range settings {
		s.items[item.Key] = item
	}
	return nil
}

type stubCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func algebraCourse() models.Course {
	return models.Course{ID: "c1", Name: "Algebra I", Section: "A", WeightMap: models.DefaultWeights}
}
