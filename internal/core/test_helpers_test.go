package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/notify"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(call string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls       []metricsCall
	transitions []string
	violations  int
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) ObserveTransition(state string) {
	c.transitions = append(c.transitions, state)
}

func (c *captureMetricsRecorder) ObservePreflight(violations int) { c.violations += violations }

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type sentEvent struct {
	event   notify.Event
	payload notify.Payload
}

type captureNotifier struct {
	sent []sentEvent
	err  error
}

func (c *captureNotifier) Send(_ context.Context, event notify.Event, p notify.Payload) error {
	c.sent = append(c.sent, sentEvent{event: event, payload: p})
	return c.err
}

type fixture struct {
	dir      string
	pipeline config.Pipeline
	run      config.Run
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newFixture lays out a valid run: two motif folders, a motif table naming
// both, a barcode FASTA, two samples and a cluster log directory.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	for _, motif := range []string{"CTCF", "YY1"} {
		if err := os.MkdirAll(filepath.Join(dir, "refs", motif), 0o755); err != nil {
			t.Fatalf("mkdir motif: %v", err)
		}
	}
	writeFile(t, filepath.Join(dir, "motifs.tsv"), "Name\tSource\nCTCF\tjaspar\nYY1\tjaspar\nCTCF\trepeat\n")
	writeFile(t, filepath.Join(dir, "barcodes.fa"), ">bc1 condition A\nACGT\n>bc2\nTTGA\n")
	writeFile(t, filepath.Join(dir, "data", "s1.fq"), strings.Repeat("A", 2048))
	writeFile(t, filepath.Join(dir, "data", "s2.fq"), strings.Repeat("C", 2048))
	writeFile(t, filepath.Join(dir, "logs", "job2.err"), "second failure")
	writeFile(t, filepath.Join(dir, "logs", "job1.err"), "first failure")
	writeFile(t, filepath.Join(dir, "logs", "job1.out"), "ignored")
	runPath := filepath.Join(dir, "run1.yaml")
	writeFile(t, runPath, `
name: run1
reference_root: refs
motif_table: motifs.tsv
barcode_fasta: barcodes.fa
samples:
  s2: data/s2.fq
  s1: data/s1.fq
cluster_log_dir: logs
`)
	run, err := config.LoadRun(runPath)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	pipeline := config.DefaultPipeline()
	pipeline.Version = "1.0.0"
	pipeline.SourceRevision = "abc123"
	pipeline.ResultsDir = filepath.Join(dir, "results")
	pipeline.Blob.FSRoot = filepath.Join(dir, "objects")
	pipeline.Ledger.SQLitePath = filepath.Join(dir, "results", "ledger.db")
	pipeline.References["ADAPTER_FASTA"] = filepath.Join(dir, "adapters.fa")
	return fixture{dir: dir, pipeline: pipeline, run: run}
}

type harness struct {
	svc      *Service
	markers  semaphore.Store
	objects  blob.Store
	ledger   ledger.Store
	notifier *captureNotifier
}

func newHarness(t *testing.T, f fixture, opts ...ServiceOption) harness {
	t.Helper()
	markers, err := semaphore.NewFileStore(f.pipeline.SemaphoreDir())
	if err != nil {
		t.Fatalf("marker store: %v", err)
	}
	h := harness{markers: markers, objects: blob.NewMemory(), ledger: ledger.NewMemory(), notifier: &captureNotifier{}}
	h.svc, err = NewService(f.pipeline, Dependencies{
		Markers:  h.markers,
		Objects:  h.objects,
		Ledger:   h.ledger,
		Notifier: h.notifier,
	}, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return h
}
