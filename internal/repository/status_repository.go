package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// StatusDeriver returns the status a record should hold under the weights of its course.
type StatusDeriver func(weights models.WeightMap, record models.StudentScoreRecord) models.StudentStatus

const derivableRecordsQuery = `SELECT r.id, r.course_id, r.student_id, r.student_name, r.assignments, r.quizzes, r.midterm, r.finals,
r.comments, r.status, r.created_at, r.updated_at, c.weight_assignments, c.weight_quizzes, c.weight_midterm, c.weight_finals
FROM student_records r JOIN courses c ON c.id = r.course_id
WHERE r.status NOT IN ('incomplete', 'withdrawn')`

type weightedRecord struct {
	models.StudentScoreRecord
	models.WeightMap
}

// rederiveStatuses recomputes the stored status of every non-manual record matched by where
// and writes the ones that changed. It returns the IDs of the courses it inspected.
func rederiveStatuses(ctx context.Context, tx *sqlx.Tx, derive StatusDeriver, where string, args ...interface{}) ([]string, error) {
	query := derivableRecordsQuery
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY r.id FOR UPDATE OF r"

	var rows []weightedRecord
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load records for status refresh: %w", err)
	}

	now := time.Now().UTC()
	courses := make(map[string]struct{})
	for _, row := range rows {
		courses[row.CourseID] = struct{}{}
		status := derive(row.WeightMap, row.StudentScoreRecord)
		if status == row.Status {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE student_records SET status = $1, updated_at = $2 WHERE id = $3`, status, now, row.ID); err != nil {
			return nil, fmt.Errorf("refresh record status: %w", err)
		}
	}

	ids := make([]string, 0, len(courses))
	for id := range courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RederiveStatuses recomputes the derived status of every record in every course in one transaction.
// It returns the IDs of the courses whose records were inspected.
func (r *StudentRecordRepository) RederiveStatuses(ctx context.Context, derive StatusDeriver) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	courses, err := rederiveStatuses(ctx, tx, derive, "")
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status tx: %w", err)
	}
	return courses, nil
}
