package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

var sqlTxReadOnly = sql.TxOptions{ReadOnly: true}

// AnalyticsRepository loads a course gradebook in one read for statistics, ranking and reports.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Gradebook returns the course and all of its records. When withHistory is set each record carries its ledger, oldest first.
// sql.ErrNoRows is returned unwrapped when the course does not exist.
func (r *AnalyticsRepository) Gradebook(ctx context.Context, courseID string, withHistory bool) (*models.Course, []models.StudentScoreRecord, error) {
	tx, err := r.db.BeginTxx(ctx, &sqlTxReadOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("begin gradebook read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var course models.Course
	if err := tx.GetContext(ctx, &course, fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns), courseID); err != nil {
		return nil, nil, err
	}

	var records []models.StudentScoreRecord
	recordsQuery := fmt.Sprintf("SELECT %s FROM student_records WHERE course_id = $1 ORDER BY student_name ASC, student_id ASC", recordColumns)
	if err := tx.SelectContext(ctx, &records, recordsQuery, courseID); err != nil {
		return nil, nil, fmt.Errorf("load gradebook records: %w", err)
	}

	if withHistory && len(records) > 0 {
		ids := make([]string, len(records))
		index := make(map[string]int, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
			index[rec.ID] = i
		}
		var entries []models.GradeHistoryEntry
		historyQuery := fmt.Sprintf("SELECT %s FROM grade_history WHERE record_id = ANY($1) ORDER BY record_id ASC, recorded_at ASC, id ASC", historyColumns)
		if err := tx.SelectContext(ctx, &entries, historyQuery, pq.Array(ids)); err != nil {
			return nil, nil, fmt.Errorf("load gradebook history: %w", err)
		}
		for _, entry := range entries {
			if i, ok := index[entry.RecordID]; ok {
				records[i].History = append(records[i].History, entry)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit gradebook read: %w", err)
	}
	return &course, records, nil
}
