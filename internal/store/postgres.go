package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lease-abstract/internal/db"
	"github.com/sells-group/lease-abstract/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_extraction":   `INSERT INTO extractions (id, document_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_extraction": `UPDATE extractions SET result = $1, status = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
	"fail_extraction":     `UPDATE extractions SET error = $1, status = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
	"get_extraction":      `SELECT ` + extractionColumns + ` FROM extractions WHERE id = $1`,
	"get_run":             `SELECT summary FROM accuracy_runs WHERE run_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(10), int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extractions (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_name TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'processing',
	result        JSONB,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accuracy_runs (
	run_id           TEXT PRIMARY KEY,
	label            TEXT NOT NULL,
	run_at           TIMESTAMPTZ NOT NULL,
	prompt_version   TEXT NOT NULL DEFAULT '',
	multi_pass       BOOLEAN NOT NULL DEFAULT false,
	average_accuracy DOUBLE PRECISION NOT NULL,
	total_cost       DOUBLE PRECISION NOT NULL,
	summary          JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS accuracy_fields (
	run_id   TEXT NOT NULL REFERENCES accuracy_runs(run_id) ON DELETE CASCADE,
	field    TEXT NOT NULL,
	accuracy DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, field)
);

CREATE TABLE IF NOT EXISTS accuracy_lease_results (
	run_id     TEXT NOT NULL REFERENCES accuracy_runs(run_id) ON DELETE CASCADE,
	tenant     TEXT NOT NULL,
	lease_file TEXT NOT NULL,
	accuracy   DOUBLE PRECISION NOT NULL,
	correct    INTEGER NOT NULL,
	evaluated  INTEGER NOT NULL,
	cost       DOUBLE PRECISION NOT NULL,
	time_secs  DOUBLE PRECISION NOT NULL,
	error      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);
CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions(document_name);
CREATE INDEX IF NOT EXISTS idx_accuracy_runs_run_at ON accuracy_runs(run_at DESC);
CREATE INDEX IF NOT EXISTS idx_accuracy_fields_field ON accuracy_fields(field);
CREATE INDEX IF NOT EXISTS idx_accuracy_lease_results_run ON accuracy_lease_results(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateExtraction(ctx context.Context, documentName string) (*model.ExtractionRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO extractions (id, document_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, documentName, string(model.StatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert extraction")
	}

	return &model.ExtractionRecord{
		ID:           id,
		DocumentName: documentName,
		Status:       model.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) CompleteExtraction(ctx context.Context, id string, result *model.MergedExtraction) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal extraction result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE extractions SET result = $1, status = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		resultJSON, string(model.StatusCompleted), time.Now().UTC(), id, string(model.StatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete extraction %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: processing extraction %s", id)
	}
	return nil
}

func (s *PostgresStore) FailExtraction(ctx context.Context, id string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extractions SET error = $1, status = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		reason, string(model.StatusFailed), time.Now().UTC(), id, string(model.StatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail extraction %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: processing extraction %s", id)
	}
	return nil
}

func (s *PostgresStore) GetExtraction(ctx context.Context, id string) (*model.ExtractionRecord, error) {
	rec, err := scanPgExtraction(s.pool.QueryRow(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get extraction %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get extraction %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListExtractions(ctx context.Context, filter ExtractionFilter) ([]model.ExtractionRecord, error) {
	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE true`
	args := []any{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.DocumentName != "" {
		args = append(args, filter.DocumentName)
		query += fmt.Sprintf(` AND document_name = $%d`, len(args))
	}
	args = append(args, listLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list extractions")
	}
	defer rows.Close()

	var out []model.ExtractionRecord
	for rows.Next() {
		rec, err := scanPgExtraction(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan extraction")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list extractions iterate")
}

var fieldUpsert = db.UpsertConfig{
	Table:        "accuracy_fields",
	Columns:      []string{"run_id", "field", "accuracy"},
	ConflictKeys: []string{"run_id", "field"},
}

// SaveAccuracyRun upserts the run row, merges per-field accuracy and
// replaces the run's per-lease rows.
func (s *PostgresStore) SaveAccuracyRun(ctx context.Context, report model.RunReport) error {
	sum := report.Summary
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO accuracy_runs (run_id, label, run_at, prompt_version, multi_pass, average_accuracy, total_cost, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id) DO UPDATE SET label = $2, run_at = $3, prompt_version = $4,
		   multi_pass = $5, average_accuracy = $6, total_cost = $7, summary = $8`,
		sum.RunID, sum.Label, sum.Timestamp.UTC(), sum.PromptVersion, sum.MultiPass,
		sum.AverageAccuracy, sum.TotalCost, summaryJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert run %s", sum.RunID)
	}

	if _, err := db.BulkUpsert(ctx, s.pool, fieldUpsert, fieldRows(sum)); err != nil {
		return eris.Wrapf(err, "postgres: field accuracy for run %s", sum.RunID)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM accuracy_lease_results WHERE run_id = $1`, sum.RunID); err != nil {
		return eris.Wrapf(err, "postgres: clear lease results for run %s", sum.RunID)
	}
	if _, err := db.CopyFrom(ctx, s.pool, "accuracy_lease_results", leaseColumns, leaseRows(sum.RunID, report.Details)); err != nil {
		return eris.Wrapf(err, "postgres: lease results for run %s", sum.RunID)
	}
	return nil
}

func (s *PostgresStore) GetAccuracyRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT summary FROM accuracy_runs WHERE run_id = $1`, runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return decodeSummary(raw)
}

func (s *PostgresStore) ListAccuracyRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT summary FROM accuracy_runs ORDER BY run_at DESC LIMIT $1`, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		sum, err := decodeSummary(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) FieldHistory(ctx context.Context, field string, limit int) ([]FieldPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.run_id, r.label, r.run_at, f.accuracy
		 FROM accuracy_fields f JOIN accuracy_runs r ON r.run_id = f.run_id
		 WHERE f.field = $1 ORDER BY r.run_at DESC LIMIT $2`,
		field, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: field history %s", field)
	}
	defer rows.Close()

	var out []FieldPoint
	for rows.Next() {
		var p FieldPoint
		if err := rows.Scan(&p.RunID, &p.Label, &p.Timestamp, &p.Accuracy); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field history")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: field history iterate")
}

func scanPgExtraction(row pgx.Row) (*model.ExtractionRecord, error) {
	var (
		rec        model.ExtractionRecord
		status     string
		resultJSON []byte
	)
	if err := row.Scan(&rec.ID, &rec.DocumentName, &status, &resultJSON, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.ExtractionStatus(status)

	if len(resultJSON) > 0 {
		rec.Result = &model.MergedExtraction{}
		if err := json.Unmarshal(resultJSON, rec.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal extraction result")
		}
	}
	return &rec, nil
}
