// Package ledger records every semaphore write as an append-only audit
// trail. Markers themselves only hold the latest state; the ledger keeps
// the sequence.
package ledger

import (
	"context"
	"fmt"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/infra/persistence/memory"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/infra/persistence/postgres"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/infra/persistence/sqlite"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

type (
	// Entry is one recorded marker write.
	Entry = core.Entry
	// Store appends and lists entries.
	Store = core.Store
	// Driver names a persistence backend.
	Driver = core.Driver
)

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
)

// ErrEmptyRunID is returned when an entry names no run.
var ErrEmptyRunID = core.ErrEmptyRunID

// Options selects a driver. internal/config fills it from the pipeline
// YAML and HITRANSMETH_LEDGER_DRIVER, HITRANSMETH_SQLITE_PATH and
// HITRANSMETH_POSTGRES_DSN.
type Options struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open returns the Store named by opts.Driver (default memory).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, opts.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("ledger: unknown driver %q", opts.Driver)
	}
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() Store { return memory.NewStore() }
