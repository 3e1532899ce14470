package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "hitransmeth_service_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "start", true, 2*time.Millisecond)
	rec.Observe(ctx, "start", false, 3*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)
	rec.ObserveTransition("RUNNING")
	rec.ObserveTransition("RUNNING")
	rec.ObservePreflight(3)

	snap := rec.Snapshot()
	if snap.DurationsMS["start"] != 5 {
		t.Fatalf("unexpected duration total %v", snap.DurationsMS)
	}
	if snap.Results["start"]["success"] != 1 || snap.Results["start"]["error"] != 1 {
		t.Fatalf("unexpected results %v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	if snap.Transitions["RUNNING"] != 2 || snap.Violations != 3 {
		t.Fatalf("unexpected run counters %+v", snap)
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), "semaphore_transitions_total") {
		t.Fatalf("expected published snapshot, got %v", published)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "finish")
	span.End(errors.New("not running"))
	_, span = tracer.Start(context.Background(), "status")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "error" || entries[0].Error != "not running" || entries[1].Status != "success" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %q", buf.String())
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil || decoded.Operation != "status" {
		t.Fatalf("decode line: %v %+v", err, decoded)
	}

	quiet := NewJSONTracer(nil)
	_, span = quiet.Start(context.Background(), "start")
	span.End(nil)
	if len(quiet.Entries()) != 1 {
		t.Fatalf("expected span retained without writer")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	rec := NewPrometheusRecorder()
	ctx := context.Background()
	rec.Observe(ctx, "start", true, 250*time.Millisecond)
	rec.Observe(ctx, "start", false, time.Second)
	rec.Observe(ctx, "", true, time.Second)
	rec.ObserveTransition("RUNNING")
	rec.ObserveTransition("DONE")
	rec.ObserveTransition("DONE")
	rec.ObservePreflight(2)
	rec.ObservePreflight(0)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("start", "success")); got != 1 {
		t.Fatalf("unexpected success count %v", got)
	}
	if got := testutil.ToFloat64(rec.transitions.WithLabelValues("DONE")); got != 2 {
		t.Fatalf("unexpected DONE transitions %v", got)
	}
	if got := testutil.ToFloat64(rec.violations); got != 2 {
		t.Fatalf("unexpected violations %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 2 {
		t.Fatalf("expected two duration series, got %d", n)
	}

	path := filepath.Join(t.TempDir(), "hitransmeth.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, name := range []string{
		"hitransmeth_operation_duration_seconds",
		"hitransmeth_operations_total",
		"hitransmeth_semaphore_transitions_total",
		"hitransmeth_preflight_violations_total",
	} {
		if !strings.Contains(string(data), name) {
			t.Fatalf("textfile missing %s:\n%s", name, data)
		}
	}
	if rec.Registry() == nil {
		t.Fatalf("expected registry")
	}
}

func TestServiceFeedsPrometheusRecorder(t *testing.T) {
	f := newFixture(t)
	rec := NewPrometheusRecorder()
	h := newHarness(t, f, WithMetricsRecorder(rec))
	if _, err := h.svc.Start(context.Background(), f.run); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := testutil.ToFloat64(rec.transitions.WithLabelValues("RUNNING")); got != 1 {
		t.Fatalf("expected one RUNNING transition, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("start", "success")); got != 1 {
		t.Fatalf("expected start success, got %v", got)
	}
}
