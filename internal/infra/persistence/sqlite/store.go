// Package sqlite persists the transition ledger to a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

var _ core.Store = (*Store)(nil)

const defaultPath = "hitransmeth-ledger.db"

// Store appends ledger entries to the transitions table.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) the database at path and applies the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transitions (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			previous TEXT NOT NULL,
			state TEXT NOT NULL,
			operation TEXT NOT NULL,
			detail TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transitions_run_idx ON transitions(run_id, recorded_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Driver reports the sqlite driver.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Record inserts entry, assigning an ID and timestamp when unset.
func (s *Store) Record(ctx context.Context, entry core.Entry) (core.Entry, error) {
	prepared, err := core.Prepare(entry, uuid.NewString, s.now)
	if err != nil {
		return core.Entry{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (id, run_id, previous, state, operation, detail, recorded_at) VALUES (?,?,?,?,?,?,?)`,
		prepared.ID, prepared.RunID, prepared.Previous, prepared.State, prepared.Operation, prepared.Detail, prepared.RecordedAt.UnixNano(),
	); err != nil {
		return core.Entry{}, fmt.Errorf("insert transition: %w", err)
	}
	return prepared, nil
}

// History returns entries for runID in recording order.
func (s *Store) History(ctx context.Context, runID string) ([]core.Entry, error) {
	if runID == "" {
		return nil, core.ErrEmptyRunID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, previous, state, operation, detail, recorded_at FROM transitions WHERE run_id = ? ORDER BY recorded_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("select transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		var nanos int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Previous, &e.State, &e.Operation, &e.Detail, &nanos); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.RecordedAt = time.Unix(0, nanos).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
