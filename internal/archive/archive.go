// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package archive keeps extraction reports in PostgreSQL so runs can be
// compared over time. Each report becomes one extraction_runs row plus one
// command_results row per dispatched command; saving a run again replaces it.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hextract/cli/internal/scheduler"
)

const pingTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		run_id              TEXT PRIMARY KEY,
		status              TEXT NOT NULL,
		started_at          TIMESTAMPTZ NOT NULL,
		ended_at            TIMESTAMPTZ,
		total_commands      INT NOT NULL,
		processed_commands  INT NOT NULL,
		successful_commands INT NOT NULL,
		failed_commands     INT NOT NULL,
		success_rate        DOUBLE PRECISION NOT NULL,
		halt                TEXT,
		settings            JSONB NOT NULL,
		archived_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS command_results (
		run_id        TEXT NOT NULL REFERENCES extraction_runs(run_id) ON DELETE CASCADE,
		global_index  INT NOT NULL,
		batch_index   INT NOT NULL,
		command       TEXT NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		priority      TEXT NOT NULL DEFAULT '',
		critical      BOOLEAN NOT NULL DEFAULT false,
		success       BOOLEAN NOT NULL,
		response_type TEXT NOT NULL DEFAULT '',
		response_text TEXT NOT NULL DEFAULT '',
		error_kind    TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		attempts      INT NOT NULL,
		duration_ms   BIGINT NOT NULL,
		executed_at   TIMESTAMPTZ NOT NULL,
		parsed        JSONB,
		PRIMARY KEY (run_id, global_index)
	)`,
	`CREATE INDEX IF NOT EXISTS command_results_command_idx ON command_results (command)`,
}

var resultColumns = []string{
	"run_id", "global_index", "batch_index", "command", "category", "priority",
	"critical", "success", "response_type", "response_text", "error_kind", "error",
	"attempts", "duration_ms", "executed_at", "parsed",
}

// Store writes reports through a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// RunRow is one archived run as listed by RecentRuns.
type RunRow struct {
	RunID       string
	Status      string
	StartedAt   time.Time
	EndedAt     *time.Time
	Total       int32
	Processed   int32
	Successful  int32
	SuccessRate float64
}

// Open normalizes dsn, connects, verifies the connection and creates the
// tables when missing.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("create archive pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to archive: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the archive tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
	}
	return nil
}

// SaveReport stores rep in a single transaction.
func (s *Store) SaveReport(ctx context.Context, rep *scheduler.Report) error {
	if rep == nil {
		return fmt.Errorf("archive: nil report")
	}
	settings, err := json.Marshal(rep.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	rows, err := resultRows(rep)
	if err != nil {
		return err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire archive connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO extraction_runs (run_id, status, started_at, ended_at, total_commands,
			processed_commands, successful_commands, failed_commands, success_rate, halt, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			ended_at = EXCLUDED.ended_at,
			total_commands = EXCLUDED.total_commands,
			processed_commands = EXCLUDED.processed_commands,
			successful_commands = EXCLUDED.successful_commands,
			failed_commands = EXCLUDED.failed_commands,
			success_rate = EXCLUDED.success_rate,
			halt = EXCLUDED.halt,
			settings = EXCLUDED.settings,
			archived_at = now()`,
		rep.RunID, string(rep.Status), rep.StartTime, nullTime(rep.EndTime),
		rep.Summary.TotalCommands, rep.Summary.ProcessedCommands,
		rep.Summary.SuccessfulCommands, rep.Summary.FailedCommands,
		rep.Summary.SuccessRate, nullString(rep.Halt), string(settings),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rep.RunID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM command_results WHERE run_id = $1`, rep.RunID); err != nil {
		return fmt.Errorf("clear results of run %s: %w", rep.RunID, err)
	}
	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"command_results"}, resultColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy results of run %s: %w", rep.RunID, err)
		}
		s.log.Debug("archived results", zap.String("run_id", rep.RunID), zap.Int64("rows", n))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	s.log.Info("report archived", zap.String("run_id", rep.RunID), zap.String("status", string(rep.Status)))
	return nil
}

// RecentRuns lists the newest archived runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, status, started_at, ended_at, total_commands,
			processed_commands, successful_commands, success_rate
		FROM extraction_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[RunRow])
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return out, nil
}

// resultRows flattens rep.Results into COPY rows in resultColumns order.
func resultRows(rep *scheduler.Report) ([][]any, error) {
	rows := make([][]any, 0, len(rep.Results))
	for _, r := range rep.Results {
		var parsed any
		if r.Parsed != nil {
			b, err := json.Marshal(r.Parsed)
			if err != nil {
				return nil, fmt.Errorf("encode parsed response of %q: %w", r.Command, err)
			}
			parsed = string(b)
		}
		rows = append(rows, []any{
			rep.RunID, int32(r.GlobalIndex), int32(r.BatchIndex), r.Command, r.Category,
			string(r.Priority), r.Critical, r.Success, string(r.ResponseType), r.ResponseText,
			string(r.ErrorKind), r.Error, int32(r.Attempts), r.Duration.Milliseconds(),
			r.Timestamp, parsed,
		})
	}
	return rows, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
