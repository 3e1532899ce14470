// Package core defines the transition ledger contract shared by the
// persistence drivers.
package core

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a ledger persistence backend.
type Driver string

const (
	// DriverMemory keeps entries in process memory.
	DriverMemory Driver = "memory"
	// DriverSQLite persists entries to a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres persists entries to a Postgres database.
	DriverPostgres Driver = "postgres"
)

// Entry is one recorded marker write.
type Entry struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Previous   string    `json:"previous,omitempty"` // empty when the run had no marker
	State      string    `json:"state"`
	Operation  string    `json:"operation"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store appends entries and returns them per run in recording order.
type Store interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	History(ctx context.Context, runID string) ([]Entry, error)
	Close() error
	Driver() Driver
}

// ErrEmptyRunID is returned when an entry or query names no run.
var ErrEmptyRunID = errors.New("ledger: empty run id")

// Prepare validates an entry and fills ID and RecordedAt when unset.
func Prepare(entry Entry, newID func() string, now func() time.Time) (Entry, error) {
	if entry.RunID == "" {
		return Entry{}, ErrEmptyRunID
	}
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now()
	}
	entry.RecordedAt = entry.RecordedAt.UTC()
	return entry, nil
}
