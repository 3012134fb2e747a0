// Package store persists extraction records and accuracy runs in SQLite or
// Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/lease-abstract/internal/model"
)

// ErrNotFound is returned when a record does not exist, or when an
// extraction is finished twice.
var ErrNotFound = errors.New("store: not found")

// ExtractionFilter specifies criteria for listing extractions.
type ExtractionFilter struct {
	Status       model.ExtractionStatus `json:"status,omitempty"`
	DocumentName string                 `json:"document_name,omitempty"`
	Limit        int                    `json:"limit,omitempty"`
	Offset       int                    `json:"offset,omitempty"`
}

// FieldPoint is one field's accuracy in one run.
type FieldPoint struct {
	RunID     string    `json:"run_id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  float64   `json:"accuracy"`
}

// Store defines persistence for extractions and benchmark runs.
type Store interface {
	// Extractions move processing -> completed | failed.
	CreateExtraction(ctx context.Context, documentName string) (*model.ExtractionRecord, error)
	CompleteExtraction(ctx context.Context, id string, result *model.MergedExtraction) error
	FailExtraction(ctx context.Context, id string, reason string) error
	GetExtraction(ctx context.Context, id string) (*model.ExtractionRecord, error)
	ListExtractions(ctx context.Context, filter ExtractionFilter) ([]model.ExtractionRecord, error)

	// Accuracy runs
	SaveAccuracyRun(ctx context.Context, report model.RunReport) error
	GetAccuracyRun(ctx context.Context, runID string) (*model.RunSummary, error)
	ListAccuracyRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	FieldHistory(ctx context.Context, field string, limit int) ([]FieldPoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// fieldRows flattens a summary's per-field accuracy for bulk insert.
func fieldRows(s model.RunSummary) [][]any {
	rows := make([][]any, 0, len(s.FieldAccuracy))
	for field, acc := range s.FieldAccuracy {
		rows = append(rows, []any{s.RunID, field, acc})
	}
	return rows
}

var leaseColumns = []string{"run_id", "tenant", "lease_file", "accuracy", "correct", "evaluated", "cost", "time_secs", "error"}

func leaseRows(runID string, details []model.LeaseResult) [][]any {
	rows := make([][]any, len(details))
	for i, d := range details {
		rows[i] = []any{runID, d.Tenant, d.LeaseFile, d.Accuracy, d.Correct, d.Evaluated, d.Cost, d.Time, d.Error}
	}
	return rows
}
