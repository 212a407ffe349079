package grading

import (
	"errors"
	"time"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// ErrNilRecord is returned when a snapshot is appended to a missing record.
var ErrNilRecord = errors.New("grading: nil record")

// SnapshotOf captures the current values of a record before they are overwritten.
func SnapshotOf(record models.StudentScoreRecord, teacher string, at time.Time) models.GradeHistoryEntry {
	return models.GradeHistoryEntry{
		RecordID:        record.ID,
		ComponentScores: record.ComponentScores.Clone(),
		Comments:        record.Comments,
		Teacher:         teacher,
		Timestamp:       at.UTC(),
	}
}

// AppendSnapshot adds an entry to the end of the record history.
// Existing entries are never modified; the history slice is reallocated so
// callers holding the previous slice keep an unchanged view.
func AppendSnapshot(record *models.StudentScoreRecord, entry models.GradeHistoryEntry) error {
	if record == nil {
		return ErrNilRecord
	}
	entry.ComponentScores = entry.ComponentScores.Clone()
	if entry.RecordID == "" {
		entry.RecordID = record.ID
	}
	history := make([]models.GradeHistoryEntry, len(record.History), len(record.History)+1)
	copy(history, record.History)
	record.History = append(history, entry)
	return nil
}

// History returns a copy of the record history, oldest first.
func History(record *models.StudentScoreRecord) []models.GradeHistoryEntry {
	if record == nil {
		return nil
	}
	out := make([]models.GradeHistoryEntry, len(record.History))
	copy(out, record.History)
	return out
}

// NewestFirst returns the entries in reverse chronological order for display.
func NewestFirst(entries []models.GradeHistoryEntry) []models.GradeHistoryEntry {
	out := make([]models.GradeHistoryEntry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	return out
}
