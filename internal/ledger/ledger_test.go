package ledger

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Options{})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("default driver: %v", err)
	}
	if _, err := Open(ctx, Options{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	sq, err := Open(ctx, Options{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "l.db")})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	if sq.Driver() != DriverSQLite {
		t.Fatalf("expected sqlite driver")
	}
	if _, err := sq.Record(ctx, Entry{RunID: "run1", State: "RUNNING"}); err != nil {
		t.Fatalf("record: %v", err)
	}
}
