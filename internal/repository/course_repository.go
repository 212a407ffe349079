package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

const courseColumns = `id, name, section, weight_assignments, weight_quizzes, weight_midterm, weight_finals, finalized, created_at, updated_at`

// CourseRepository persists courses and their weight maps.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course ordered by name and section.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses ORDER BY name ASC, section ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course. sql.ErrNoRows is returned unwrapped when absent.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, section, weight_assignments, weight_quizzes, weight_midterm, weight_finals, finalized, created_at, updated_at)
VALUES (:id, :name, :section, :weight_assignments, :weight_quizzes, :weight_midterm, :weight_finals, :finalized, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateWeights replaces the weight map of a course. When derive is set, the derived statuses
// of the course records are refreshed under the new weights in the same transaction.
func (r *CourseRepository) UpdateWeights(ctx context.Context, id string, weights models.WeightMap, derive StatusDeriver) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin weights tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE courses SET weight_assignments = $1, weight_quizzes = $2, weight_midterm = $3, weight_finals = $4, updated_at = $5 WHERE id = $6`
	res, err := tx.ExecContext(ctx, query, weights.Assignments, weights.Quizzes, weights.Midterm, weights.Finals, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update course weights: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	if derive != nil {
		if _, err := rederiveStatuses(ctx, tx, derive, "r.course_id = $1", id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit weights tx: %w", err)
	}
	return nil
}

// SetFinalized toggles the finalized flag.
func (r *CourseRepository) SetFinalized(ctx context.Context, id string, finalized bool) error {
	const query = `UPDATE courses SET finalized = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, finalized, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set course finalized: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
