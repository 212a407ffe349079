package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

const (
	recordColumns   = `id, course_id, student_id, student_name, assignments, quizzes, midterm, finals, comments, status, created_at, updated_at`
	historyColumns  = `id, record_id, assignments, quizzes, midterm, finals, comments, teacher, recorded_at`
	uniqueViolation = "23505"
)

// ErrDuplicateRecord is returned when a student is already enrolled in the course.
var ErrDuplicateRecord = errors.New("student record already exists")

// RecordMutation is applied to a locked record. Entries it appends to current.History are inserted into the ledger.
type RecordMutation func(current *models.StudentScoreRecord) error

// StudentRecordRepository persists grade sheet rows and their history ledger.
type StudentRecordRepository struct {
	db *sqlx.DB
}

// NewStudentRecordRepository constructs a StudentRecordRepository.
func NewStudentRecordRepository(db *sqlx.DB) *StudentRecordRepository {
	return &StudentRecordRepository{db: db}
}

// List returns a page of records for a course together with the total count.
func (r *StudentRecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.StudentScoreRecord, int, error) {
	args := []interface{}{filter.CourseID}
	conditions := []string{"course_id = $1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(student_id) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM student_records WHERE %s ORDER BY student_name ASC, student_id ASC LIMIT %d OFFSET %d", recordColumns, where, size, offset)
	var records []models.StudentScoreRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_records WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count student records: %w", err)
	}
	return records, total, nil
}

// FindByCourseAndStudent fetches a single record. sql.ErrNoRows is returned unwrapped when absent.
func (r *StudentRecordRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.StudentScoreRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM student_records WHERE course_id = $1 AND student_id = $2", recordColumns)
	var record models.StudentScoreRecord
	if err := r.db.GetContext(ctx, &record, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a record. A second record for the same course and student yields ErrDuplicateRecord.
func (r *StudentRecordRepository) Create(ctx context.Context, record *models.StudentScoreRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.StudentStatusUngraded
	}
	const query = `INSERT INTO student_records (id, course_id, student_id, student_name, assignments, quizzes, midterm, finals, comments, status, created_at, updated_at)
VALUES (:id, :course_id, :student_id, :student_name, :assignments, :quizzes, :midterm, :finals, :comments, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("create student record: %w", err)
	}
	return nil
}

// Mutate locks the record, applies fn, persists history entries appended by fn and the record in one transaction.
// The returned record carries no history.
func (r *StudentRecordRepository) Mutate(ctx context.Context, courseID, studentID string, fn RecordMutation) (*models.StudentScoreRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf("SELECT %s FROM student_records WHERE course_id = $1 AND student_id = $2 FOR UPDATE", recordColumns)
	var record models.StudentScoreRecord
	if err := tx.GetContext(ctx, &record, query, courseID, studentID); err != nil {
		return nil, err
	}

	if err := fn(&record); err != nil {
		return nil, err
	}

	const insertHistory = `INSERT INTO grade_history (id, record_id, assignments, quizzes, midterm, finals, comments, teacher, recorded_at)
VALUES (:id, :record_id, :assignments, :quizzes, :midterm, :finals, :comments, :teacher, :recorded_at)`
	for i := range record.History {
		entry := &record.History[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.RecordID = record.ID
		if _, err := tx.NamedExecContext(ctx, insertHistory, entry); err != nil {
			return nil, fmt.Errorf("append grade history: %w", err)
		}
	}
	record.History = nil

	record.UpdatedAt = time.Now().UTC()
	const update = `UPDATE student_records SET assignments = :assignments, quizzes = :quizzes, midterm = :midterm, finals = :finals,
comments = :comments, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, &record); err != nil {
		return nil, fmt.Errorf("update student record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record tx: %w", err)
	}
	return &record, nil
}

// ListHistory returns the ledger of a record oldest first.
func (r *StudentRecordRepository) ListHistory(ctx context.Context, recordID string) ([]models.GradeHistoryEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_history WHERE record_id = $1 ORDER BY recorded_at ASC, id ASC", historyColumns)
	var entries []models.GradeHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, recordID); err != nil {
		return nil, fmt.Errorf("list grade history: %w", err)
	}
	return entries, nil
}
