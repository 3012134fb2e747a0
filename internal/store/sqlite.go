package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lease-abstract/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extractions (
	id            TEXT PRIMARY KEY,
	document_name TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'processing',
	result        TEXT,
	error         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS accuracy_runs (
	run_id           TEXT PRIMARY KEY,
	label            TEXT NOT NULL,
	run_at           DATETIME NOT NULL,
	prompt_version   TEXT NOT NULL DEFAULT '',
	multi_pass       INTEGER NOT NULL DEFAULT 0,
	average_accuracy REAL NOT NULL,
	total_cost       REAL NOT NULL,
	summary          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accuracy_fields (
	run_id   TEXT NOT NULL REFERENCES accuracy_runs(run_id) ON DELETE CASCADE,
	field    TEXT NOT NULL,
	accuracy REAL NOT NULL,
	PRIMARY KEY (run_id, field)
);

CREATE TABLE IF NOT EXISTS accuracy_lease_results (
	run_id     TEXT NOT NULL REFERENCES accuracy_runs(run_id) ON DELETE CASCADE,
	tenant     TEXT NOT NULL,
	lease_file TEXT NOT NULL,
	accuracy   REAL NOT NULL,
	correct    INTEGER NOT NULL,
	evaluated  INTEGER NOT NULL,
	cost       REAL NOT NULL,
	time_secs  REAL NOT NULL,
	error      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);
CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions(document_name);
CREATE INDEX IF NOT EXISTS idx_accuracy_runs_run_at ON accuracy_runs(run_at);
CREATE INDEX IF NOT EXISTS idx_accuracy_fields_field ON accuracy_fields(field);
CREATE INDEX IF NOT EXISTS idx_accuracy_lease_results_run ON accuracy_lease_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateExtraction(ctx context.Context, documentName string) (*model.ExtractionRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extractions (id, document_name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, documentName, string(model.StatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert extraction")
	}

	return &model.ExtractionRecord{
		ID:           id,
		DocumentName: documentName,
		Status:       model.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) CompleteExtraction(ctx context.Context, id string, result *model.MergedExtraction) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal extraction result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE extractions SET result = ?, status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(resultJSON), string(model.StatusCompleted), time.Now().UTC(), id, string(model.StatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete extraction %s", id)
	}
	return checkRowsAffected(res, "processing extraction", id)
}

func (s *SQLiteStore) FailExtraction(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extractions SET error = ?, status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		reason, string(model.StatusFailed), time.Now().UTC(), id, string(model.StatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail extraction %s", id)
	}
	return checkRowsAffected(res, "processing extraction", id)
}

const extractionColumns = `id, document_name, status, result, error, created_at, updated_at`

func (s *SQLiteStore) GetExtraction(ctx context.Context, id string) (*model.ExtractionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE id = ?`, id,
	)
	rec, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get extraction %s", id)
	}
	return rec, err
}

func (s *SQLiteStore) ListExtractions(ctx context.Context, filter ExtractionFilter) ([]model.ExtractionRecord, error) {
	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.DocumentName != "" {
		query += ` AND document_name = ?`
		args = append(args, filter.DocumentName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list extractions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ExtractionRecord
	for rows.Next() {
		rec, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list extractions iterate")
}

func (s *SQLiteStore) SaveAccuracyRun(ctx context.Context, report model.RunReport) error {
	sum := report.Summary
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accuracy_runs (run_id, label, run_at, prompt_version, multi_pass, average_accuracy, total_cost, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO UPDATE SET label = excluded.label, run_at = excluded.run_at,
		   prompt_version = excluded.prompt_version, multi_pass = excluded.multi_pass,
		   average_accuracy = excluded.average_accuracy, total_cost = excluded.total_cost, summary = excluded.summary`,
		sum.RunID, sum.Label, sum.Timestamp.UTC(), sum.PromptVersion, sum.MultiPass,
		sum.AverageAccuracy, sum.TotalCost, string(summaryJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert run %s", sum.RunID)
	}

	for _, r := range fieldRows(sum) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accuracy_fields (run_id, field, accuracy) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, field) DO UPDATE SET accuracy = excluded.accuracy`, r...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert field accuracy for run %s", sum.RunID)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accuracy_lease_results WHERE run_id = ?`, sum.RunID); err != nil {
		return eris.Wrapf(err, "sqlite: clear lease results for run %s", sum.RunID)
	}
	for _, r := range leaseRows(sum.RunID, report.Details) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accuracy_lease_results (run_id, tenant, lease_file, accuracy, correct, evaluated, cost, time_secs, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, r...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert lease result for run %s", sum.RunID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetAccuracyRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM accuracy_runs WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return decodeSummary([]byte(raw))
}

func (s *SQLiteStore) ListAccuracyRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM accuracy_runs ORDER BY run_at DESC LIMIT ?`, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RunSummary
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		sum, err := decodeSummary([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) FieldHistory(ctx context.Context, field string, limit int) ([]FieldPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, r.label, r.run_at, f.accuracy
		 FROM accuracy_fields f JOIN accuracy_runs r ON r.run_id = f.run_id
		 WHERE f.field = ? ORDER BY r.run_at DESC LIMIT ?`,
		field, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: field history %s", field)
	}
	defer rows.Close() //nolint:errcheck

	var out []FieldPoint
	for rows.Next() {
		var p FieldPoint
		if err := rows.Scan(&p.RunID, &p.Label, &p.Timestamp, &p.Accuracy); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field history")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: field history iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExtraction(row scannable) (*model.ExtractionRecord, error) {
	var (
		rec        model.ExtractionRecord
		status     string
		resultJSON sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.DocumentName, &status, &resultJSON, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan extraction")
	}
	rec.Status = model.ExtractionStatus(status)

	if resultJSON.Valid {
		rec.Result = &model.MergedExtraction{}
		if err := json.Unmarshal([]byte(resultJSON.String), rec.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extraction result")
		}
	}
	return &rec, nil
}

func decodeSummary(raw []byte) (*model.RunSummary, error) {
	var sum model.RunSummary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal run summary")
	}
	return &sum, nil
}
