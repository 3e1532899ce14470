package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, err := store.Record(ctx, core.Entry{RunID: "run1", State: "RUNNING", Operation: "start", RecordedAt: base}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, core.Entry{RunID: "run1", Previous: "RUNNING", State: "DONE", Operation: "finish", RecordedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, core.Entry{RunID: "other", State: "RUNNING", Operation: "start"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	hist, err := reloaded.History(ctx, "run1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if hist[0].State != "RUNNING" || hist[1].Previous != "RUNNING" || hist[1].State != "DONE" {
		t.Fatalf("unexpected history %+v", hist)
	}
	if !hist[1].RecordedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("timestamp not preserved: %v", hist[1].RecordedAt)
	}
	if reloaded.Driver() != core.DriverSQLite || reloaded.Path() != path {
		t.Fatalf("unexpected driver/path")
	}
}

func TestSQLiteStoreAppliesSchema(t *testing.T) {
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	var name string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "transitions").Scan(&name); err != nil {
		t.Fatalf("lookup transitions table: %v", err)
	}
}

func TestSQLiteStoreRejectsEmptyRunID(t *testing.T) {
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.Record(context.Background(), core.Entry{}); !errors.Is(err, core.ErrEmptyRunID) {
		t.Fatalf("expected ErrEmptyRunID, got %v", err)
	}
}
