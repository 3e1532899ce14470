// Package memory provides an in-memory ledger store used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

// Compile-time contract assertion.
var _ core.Store = (*Store)(nil)

// Store keeps ledger entries grouped by run ID.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]core.Entry
	now     func() time.Time
}

// NewStore returns an empty ledger.
func NewStore() *Store {
	return &Store{entries: make(map[string][]core.Entry), now: func() time.Time { return time.Now().UTC() }}
}

// Driver reports the memory driver.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Record appends an entry, assigning an ID and timestamp when unset.
func (s *Store) Record(_ context.Context, entry core.Entry) (core.Entry, error) {
	prepared, err := core.Prepare(entry, uuid.NewString, s.now)
	if err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	s.entries[prepared.RunID] = append(s.entries[prepared.RunID], prepared)
	s.mu.Unlock()
	return prepared, nil
}

// History returns a copy of the entries recorded for runID, oldest first.
func (s *Store) History(_ context.Context, runID string) ([]core.Entry, error) {
	if runID == "" {
		return nil, core.ErrEmptyRunID
	}
	s.mu.RLock()
	out := make([]core.Entry, len(s.entries[runID]))
	copy(out, s.entries[runID])
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Runs lists every run ID with at least one entry, sorted.
func (s *Store) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
