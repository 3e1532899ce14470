package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetHeadListDelete(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "reports/run1/final.log", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "text/plain", Metadata: map[string]string{"run": "run1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "reports/run1/final.log" || info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "reports/run1/final.log", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate failure")
	}
	h, err := store.Head(ctx, "reports/run1/final.log")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	g, rc, err := store.Get(ctx, "reports/run1/final.log")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "hello" || g.ETag != h.ETag || g.Metadata["run"] != "run1" {
		t.Fatalf("unexpected get artifacts %+v", g)
	}
	list, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "reports/run1/final.log" {
		t.Fatalf("unexpected list %+v", list)
	}
	url, err := store.PresignURL(ctx, "reports/run1/final.log", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") {
		t.Fatalf("presign url: %v %s", err, url)
	}
	if _, err := store.PresignURL(ctx, "reports/run1/final.log", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported for PUT, got %v", err)
	}
	ok, err := store.Delete(ctx, "reports/run1/final.log")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "reports/run1/final.log")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStore_PutReplaceKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "semaphores/run1.sem", strings.NewReader("RUNNING"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, metaPath, _ := store.pathFor("semaphores/run1.sem")
	first, err := readMeta(metaPath)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if _, err := store.Put(ctx, "semaphores/run1.sem", strings.NewReader("DONE"), core.PutOptions{Replace: true}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	_, rc, err := store.Get(ctx, "semaphores/run1.sem")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	b, _ := io.ReadAll(rc)
	if string(b) != "DONE" {
		t.Fatalf("expected replaced content, got %q", b)
	}
	second, _ := readMeta(metaPath)
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on replace: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestStore_MissingKeysMatchErrNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
}

func TestStore_RejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "  ", "../escape.txt", "/abs.txt", "x.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStore_PutReaderErrorLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "broken.txt", errorReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	dataPath, _, _ := store.pathFor("broken.txt")
	if _, err := os.Stat(dataPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no data file, stat err %v", err)
	}
	entries, _ := os.ReadDir(store.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
