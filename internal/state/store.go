// Package state manages the SQLite database that tracks sync runs per
// account and entity type: when each sync last completed, what it did, and
// whether it failed.
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id  TEXT    NOT NULL,
    entity      TEXT    NOT NULL,
    started_at  TEXT    NOT NULL DEFAULT '',
    finished_at TEXT    NOT NULL DEFAULT '',
    created     INTEGER NOT NULL DEFAULT 0,
    updated     INTEGER NOT NULL DEFAULT 0,
    deleted     INTEGER NOT NULL DEFAULT 0,
    errors      INTEGER NOT NULL DEFAULT 0,
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_account_entity ON sync_runs (account_id, entity, finished_at);
`

// Run records one completed sync pass for a single account and entity type.
// Error is empty for successful runs.
type Run struct {
	ID         int64
	AccountID  string
	Entity     string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Updated    int
	Deleted    int
	Errors     int
	Error      string
}

// Store is the SQLite-backed sync-run repository.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the state database:
// ~/.local/share/ewsync/state.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ewsync", "state.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema, and
// configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// RecordRun appends a completed run. The run's ID field is updated with the
// row ID after insert.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	const q = `
		INSERT INTO sync_runs
		    (account_id, entity, started_at, finished_at, created, updated, deleted, errors, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		run.AccountID,
		run.Entity,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Created,
		run.Updated,
		run.Deleted,
		run.Errors,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("recording %s run for %q: %w", run.Entity, run.AccountID, err)
	}
	id, err := res.LastInsertId()
	if err == nil && id > 0 {
		run.ID = id
	}
	return nil
}

// LastRun returns the most recent run for the account and entity, successful
// or not, or (nil, nil) if none has been recorded yet.
func (s *Store) LastRun(ctx context.Context, accountID, entity string) (*Run, error) {
	const q = `
		SELECT id, account_id, entity, started_at, finished_at,
		       created, updated, deleted, errors, error
		FROM sync_runs WHERE account_id = ? AND entity = ?
		ORDER BY id DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, accountID, entity)
	return scanRun(row)
}

// LastSyncTime returns the finish time of the most recent successful run for
// the account and entity, or the zero time if none succeeded yet. A zero
// result tells the caller to run a full sync instead of an incremental one.
func (s *Store) LastSyncTime(ctx context.Context, accountID, entity string) (time.Time, error) {
	const q = `
		SELECT finished_at FROM sync_runs
		WHERE account_id = ? AND entity = ? AND error = ''
		ORDER BY id DESC LIMIT 1`
	var finished string
	err := s.db.QueryRowContext(ctx, q, accountID, entity).Scan(&finished)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying last sync time: %w", err)
	}
	return parseTime(finished)
}

// RecentRuns returns up to limit most recent runs for the account across all
// entities, newest first. Used by the status subcommand.
func (s *Store) RecentRuns(ctx context.Context, accountID string, limit int) ([]*Run, error) {
	const q = `
		SELECT id, account_id, entity, started_at, finished_at,
		       created, updated, deleted, errors, error
		FROM sync_runs WHERE account_id = ?
		ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs for %q: %w", accountID, err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Totals returns the lifetime created/updated/deleted counts for the account
// and entity, summed over all recorded runs.
func (s *Store) Totals(ctx context.Context, accountID, entity string) (created, updated, deleted int, err error) {
	const q = `
		SELECT COALESCE(SUM(created), 0), COALESCE(SUM(updated), 0), COALESCE(SUM(deleted), 0)
		FROM sync_runs WHERE account_id = ? AND entity = ?`
	err = s.db.QueryRowContext(ctx, q, accountID, entity).Scan(&created, &updated, &deleted)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("summing run totals: %w", err)
	}
	return created, updated, deleted, nil
}

// --- helpers -----------------------------------------------------------------

// scanner matches both *sql.Row and *sql.Rows so scanRun can be reused.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started, finished string

	err := s.Scan(
		&run.ID,
		&run.AccountID,
		&run.Entity,
		&started,
		&finished,
		&run.Created,
		&run.Updated,
		&run.Deleted,
		&run.Errors,
		&run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run row: %w", err)
	}

	run.StartedAt, _ = parseTime(started)
	run.FinishedAt, _ = parseTime(finished)

	return &run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
