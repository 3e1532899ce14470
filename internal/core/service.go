// Package core drives one analysis run through its lifecycle: preflight
// checks, the RUNNING marker, the terminal marker, the final report and the
// start/complete notifications. Every operation is logged, timed and traced
// through the ServiceOption hooks.
package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/backup"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/notify"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

// ErrNotRunning is returned by Finish when the run's marker is not RUNNING.
var ErrNotRunning = errors.New("core: run is not running")

// Dependencies are the collaborators a Service writes through. Markers is
// required; the rest are optional.
type Dependencies struct {
	Markers  semaphore.Store
	Objects  blob.Store      // report archive; nil disables archiving
	Ledger   ledger.Store    // transition history; nil disables recording
	Notifier notify.Notifier // nil discards notifications
}

// Service coordinates a run using the pipeline settings it was built with.
type Service struct {
	pipeline config.Pipeline
	markers  semaphore.Store
	objects  blob.Store
	ledger   ledger.Store
	notifier notify.Notifier

	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService builds a Service from explicit dependencies.
func NewService(pipeline config.Pipeline, deps Dependencies, opts ...ServiceOption) (*Service, error) {
	if deps.Markers == nil {
		return nil, errors.New("core: a semaphore store is required")
	}
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		pipeline: pipeline,
		markers:  deps.Markers,
		objects:  deps.Objects,
		ledger:   deps.Ledger,
		notifier: notifier,
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}, nil
}

// Pipeline returns the settings the service was built with.
func (s *Service) Pipeline() config.Pipeline { return s.pipeline }

// Close releases the ledger connection, if any.
func (s *Service) Close() error {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Close()
}

// StartResult describes a started run.
type StartResult struct {
	RunID     string
	Preflight PreflightResult
	Config    backup.Result // zero when the run was not loaded from a file
}

// Start validates the run and marks it RUNNING. A failed preflight returns
// before any marker, copy or notification is written.
func (s *Service) Start(ctx context.Context, run config.Run) (StartResult, error) {
	var res StartResult
	err := s.run(ctx, "start", func(ctx context.Context) error {
		pre, err := s.Preflight(ctx, run)
		res.Preflight = pre
		if err != nil {
			return fmt.Errorf("core: preflight %s: %w", run.Name, err)
		}
		prev, _, err := s.markers.Get(ctx, run.Name)
		if err != nil {
			var invalid *semaphore.InvalidStateError
			if !errors.As(err, &invalid) {
				return fmt.Errorf("core: read marker %s: %w", run.Name, err)
			}
			prev = semaphore.State(invalid.Value)
		}
		if prev == semaphore.Running {
			s.logger.Warn("run already running", "run", run.Name)
		}
		if run.Path != "" {
			copied, err := backup.CopyWithBackup(run.Path, s.pipeline.RunDir(run.Name), filepath.Base(run.Path))
			if err != nil {
				return fmt.Errorf("core: copy run config: %w", err)
			}
			res.Config = copied
		}
		if err := s.transition(ctx, "start", run.Name, prev, semaphore.Running); err != nil {
			return err
		}
		res.RunID = run.Name
		s.notify(ctx, notify.EventStart, notify.Payload{
			RunID:   run.Name,
			Samples: run.SampleNames(),
			Motifs:  pre.Motifs.Unique(),
			State:   string(semaphore.Running),
		})
		return nil
	})
	return res, err
}

// FinishResult describes a finished run.
type FinishResult struct {
	RunID  string
	State  semaphore.State
	Report ReportResult
}

// Finish moves a RUNNING run to DONE (ok) or ERROR, then writes, archives and
// announces the final report. Report failures are returned after the marker
// has been written.
func (s *Service) Finish(ctx context.Context, run config.Run, ok bool) (FinishResult, error) {
	var res FinishResult
	err := s.run(ctx, "finish", func(ctx context.Context) error {
		state, present, err := s.markers.Get(ctx, run.Name)
		if err != nil {
			return fmt.Errorf("core: read marker %s: %w", run.Name, err)
		}
		if !present || state != semaphore.Running {
			if !present {
				return fmt.Errorf("%w: %s has no marker", ErrNotRunning, run.Name)
			}
			return fmt.Errorf("%w: %s is %s", ErrNotRunning, run.Name, state)
		}
		next := semaphore.Error
		if ok {
			next = semaphore.Done
		}
		if err := s.transition(ctx, "finish", run.Name, state, next); err != nil {
			return err
		}
		res.RunID = run.Name
		res.State = next
		rep, err := s.writeReport(ctx, run)
		res.Report = rep
		if err != nil {
			return err
		}
		motifs := rep.Motifs.Unique()
		s.notify(ctx, notify.EventComplete, notify.Payload{
			RunID:     run.Name,
			Samples:   run.SampleNames(),
			Motifs:    motifs,
			State:     string(next),
			ReportURL: rep.URL,
		})
		return nil
	})
	return res, err
}

// RunStatus is one run's marker as seen by Statuses.
type RunStatus struct {
	RunID   string          `json:"run_id"`
	State   semaphore.State `json:"state,omitempty"`
	Present bool            `json:"present"`
}

// Status reads one marker.
func (s *Service) Status(ctx context.Context, runID string) (RunStatus, error) {
	var st RunStatus
	err := s.run(ctx, "status", func(ctx context.Context) error {
		var err error
		st, err = s.status(ctx, runID)
		return err
	})
	return st, err
}

// Statuses reads many markers concurrently, at most
// pipeline.StatusConcurrency at a time, and returns them in input order.
func (s *Service) Statuses(ctx context.Context, runIDs []string) ([]RunStatus, error) {
	out := make([]RunStatus, len(runIDs))
	err := s.run(ctx, "statuses", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		limit := s.pipeline.StatusConcurrency
		if limit <= 0 {
			limit = 1
		}
		g.SetLimit(limit)
		for i, id := range runIDs {
			g.Go(func() error {
				st, err := s.status(gctx, id)
				if err != nil {
					return err
				}
				out[i] = st
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the recorded transitions of a run, oldest first.
func (s *Service) History(ctx context.Context, runID string) ([]ledger.Entry, error) {
	if s.ledger == nil {
		return nil, nil
	}
	var entries []ledger.Entry
	err := s.run(ctx, "history", func(ctx context.Context) error {
		var err error
		entries, err = s.ledger.History(ctx, runID)
		return err
	})
	return entries, err
}

func (s *Service) status(ctx context.Context, runID string) (RunStatus, error) {
	state, present, err := s.markers.Get(ctx, runID)
	if err != nil {
		return RunStatus{}, fmt.Errorf("core: read marker %s: %w", runID, err)
	}
	return RunStatus{RunID: runID, State: state, Present: present}, nil
}

func (s *Service) transition(ctx context.Context, op, runID string, prev, next semaphore.State) error {
	if err := s.markers.Set(ctx, runID, next); err != nil {
		return fmt.Errorf("core: write marker %s: %w", runID, err)
	}
	if rm, ok := s.metrics.(RunMetrics); ok {
		rm.ObserveTransition(string(next))
	}
	s.logger.Info("semaphore updated", "run", runID, "from", string(prev), "to", string(next))
	if s.ledger == nil {
		return nil
	}
	// Ledger entries are best-effort once the marker is written.
	if _, err := s.ledger.Record(ctx, ledger.Entry{
		RunID:      runID,
		Previous:   string(prev),
		State:      string(next),
		Operation:  op,
		RecordedAt: s.clock.Now(),
	}); err != nil {
		s.logger.Warn("transition not recorded", "run", runID, "to", string(next), "error", err)
	}
	return nil
}

// notify never fails the operation; delivery problems are logged.
func (s *Service) notify(ctx context.Context, event notify.Event, p notify.Payload) {
	if err := s.notifier.Send(ctx, event, p); err != nil {
		s.logger.Warn("notification failed", "event", string(event), "run", p.RunID, "error", err)
	}
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	s.logger.Debug("operation started", "operation", op)
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "duration", elapsed, "error", err)
		return err
	}
	s.logger.Info("operation completed", "operation", op, "duration", elapsed)
	return nil
}
