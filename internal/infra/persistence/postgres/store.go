// Package postgres persists the transition ledger to Postgres through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

var _ core.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/hitransmeth?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transitions (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		previous TEXT NOT NULL,
		state TEXT NOT NULL,
		operation TEXT NOT NULL,
		detail TEXT NOT NULL,
		recorded_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transitions_run_idx ON transitions(run_id, recorded_at)`,
}

// Store appends ledger entries to the transitions table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a Postgres-backed ledger using dsn (falls back to defaultDSN)
// and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Driver reports the postgres driver.
func (s *Store) Driver() core.Driver { return core.DriverPostgres }

// Record inserts entry inside a transaction.
func (s *Store) Record(ctx context.Context, entry core.Entry) (core.Entry, error) {
	prepared, err := core.Prepare(entry, uuid.NewString, s.now)
	if err != nil {
		return core.Entry{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transitions (id, run_id, previous, state, operation, detail, recorded_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		prepared.ID, prepared.RunID, prepared.Previous, prepared.State, prepared.Operation, prepared.Detail, prepared.RecordedAt.UnixNano(),
	); err != nil {
		return core.Entry{}, fmt.Errorf("insert transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return prepared, nil
}

// History returns entries for runID in recording order.
func (s *Store) History(ctx context.Context, runID string) ([]core.Entry, error) {
	if runID == "" {
		return nil, core.ErrEmptyRunID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, previous, state, operation, detail, recorded_at FROM transitions WHERE run_id = $1 ORDER BY recorded_at, seq`, runID)
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

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
