package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger/core"
)

func TestStoreRecordAssignsIDAndTimestamp(t *testing.T) {
	store := NewStore()
	entry, err := store.Record(context.Background(), core.Entry{RunID: "run1", State: "RUNNING", Operation: "start"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "" || entry.RecordedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", entry)
	}
	if entry.RecordedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
}

func TestStoreHistoryOrderedAndIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if _, err := store.Record(ctx, core.Entry{RunID: "run1", State: "DONE", Previous: "RUNNING", RecordedAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, core.Entry{RunID: "run1", State: "RUNNING", RecordedAt: base}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, core.Entry{RunID: "run2", State: "RUNNING", RecordedAt: base}); err != nil {
		t.Fatalf("record: %v", err)
	}
	hist, err := store.History(ctx, "run1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 || hist[0].State != "RUNNING" || hist[1].State != "DONE" {
		t.Fatalf("unexpected history %+v", hist)
	}
	hist[0].State = "mutated"
	again, _ := store.History(ctx, "run1")
	if again[0].State != "RUNNING" {
		t.Fatalf("history leaked internal slice")
	}
	if runs := store.Runs(); len(runs) != 2 || runs[0] != "run1" {
		t.Fatalf("unexpected runs %v", runs)
	}
}

func TestStoreRejectsEmptyRunID(t *testing.T) {
	store := NewStore()
	if _, err := store.Record(context.Background(), core.Entry{State: "RUNNING"}); !errors.Is(err, core.ErrEmptyRunID) {
		t.Fatalf("expected ErrEmptyRunID, got %v", err)
	}
	if _, err := store.History(context.Background(), ""); !errors.Is(err, core.ErrEmptyRunID) {
		t.Fatalf("expected ErrEmptyRunID from history, got %v", err)
	}
}
