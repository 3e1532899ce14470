package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob/core"
)

func TestMockStore_RoundTrip(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3")
	}
	if _, err := s.Put(ctx, "semaphores/run1.sem", strings.NewReader("RUNNING"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "semaphores/run1.sem", strings.NewReader("DONE"), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only failure")
	}
	if _, err := s.Put(ctx, "semaphores/run1.sem", strings.NewReader("DONE"), core.PutOptions{Replace: true}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	_, rc, err := s.Get(ctx, "semaphores/run1.sem")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "DONE" {
		t.Fatalf("expected DONE, got %q", b)
	}
	list, err := s.List(ctx, "semaphores/")
	if err != nil || len(list) != 1 || list[0].Key != "semaphores/run1.sem" {
		t.Fatalf("list: %v %+v", err, list)
	}
	url, err := s.PresignURL(ctx, "semaphores/run1.sem", core.SignedURLOptions{})
	if err != nil || url == "" {
		t.Fatalf("presign: %v %q", err, url)
	}
	if _, err := s.PresignURL(ctx, "semaphores/run1.sem", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign method")
	}
	if ok, err := s.Delete(ctx, "semaphores/run1.sem"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "semaphores/run1.sem"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestMockStore_MissingIsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunkedLiteAndParseHex(t *testing.T) {
	dec, ok := decodeChunkedLite([]byte("3\r\nabc\r\n0\r\n"))
	if !ok || string(dec) != "abc" {
		t.Fatalf("unexpected decode: %v %q", ok, string(dec))
	}
	if _, err := parseHex("zz"); err == nil {
		t.Fatalf("expected parseHex error")
	}
	if _, ok := decodeChunkedLite([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("expected decode failure")
	}
}

func TestMockRoundTripperLiteUnsupported(t *testing.T) {
	rt := &mockRoundTripperLite{state: make(map[string]mockObj)}
	req, _ := http.NewRequest(http.MethodPatch, "https://mock.s3.local/bucket/key", nil)
	resp, _ := rt.RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
