// Command hitransmeth drives the run lifecycle around the workflow engine:
//
//	hitransmeth check   [-config pipeline.yaml] run.yaml
//	hitransmeth start   [-config pipeline.yaml] run.yaml
//	hitransmeth finish  [-config pipeline.yaml] [-failed] run.yaml
//	hitransmeth report  [-config pipeline.yaml] [-print] run.yaml
//	hitransmeth status  [-config pipeline.yaml] [-json] run-id...
//	hitransmeth history [-config pipeline.yaml] [-json] run-id
//
// Exit codes: 0 success, 1 failure, 2 usage error.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/core"
)

var exitFunc = os.Exit

func main() {
	code := cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	config          string
	metricsTextfile string
	trace           string
	verbose         bool
	failed          bool
	print           bool
	json            bool
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: hitransmeth <check|start|finish|report|status|history> [flags] args...")
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]
	var opts options
	fs := flag.NewFlagSet("hitransmeth "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", os.Getenv("HITRANSMETH_CONFIG"), "pipeline settings YAML (defaults only when empty)")
	fs.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
	fs.StringVar(&opts.trace, "trace", "", "append JSON trace spans to this file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	switch cmd {
	case "check", "start":
	case "finish":
		fs.BoolVar(&opts.failed, "failed", false, "mark the run ERROR instead of DONE")
	case "report":
		fs.BoolVar(&opts.print, "print", false, "also print the report to stdout")
	case "status", "history":
		fs.BoolVar(&opts.json, "json", false, "print JSON")
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if fs.NArg() == 0 || (cmd != "status" && fs.NArg() != 1) {
		_, _ = fmt.Fprintf(stderr, "%s: wrong number of arguments\n", cmd)
		usage(stderr)
		return 2
	}
	if err := execute(ctx, cmd, fs.Args(), opts, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s failed: %v\n", cmd, err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cmd string, args []string, opts options, stdout, stderr io.Writer) (err error) {
	pipeline, err := config.LoadPipeline(opts.config)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	metrics := core.NewPrometheusRecorder()
	svcOpts := []core.ServiceOption{core.WithLogger(logger), core.WithMetricsRecorder(metrics)}
	if opts.trace != "" {
		f, ferr := os.OpenFile(opts.trace, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if ferr != nil {
			return fmt.Errorf("open trace file: %w", ferr)
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}
	svc, err := core.Open(ctx, pipeline, svcOpts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, svc.Close()) }()
	if opts.metricsTextfile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(opts.metricsTextfile); werr != nil {
				err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
			}
		}()
	}

	switch cmd {
	case "status":
		return status(ctx, svc, args, opts.json, stdout)
	case "history":
		return history(ctx, svc, args[0], opts.json, stdout)
	}
	run, err := config.LoadRun(args[0])
	if err != nil {
		return err
	}
	switch cmd {
	case "check":
		res, err := svc.Preflight(ctx, run)
		if err != nil {
			writeViolations(stderr, res.Violations)
			return fmt.Errorf("%d violation(s)", len(res.Violations))
		}
		_, err = fmt.Fprintf(stdout, "Preflight passed for %s: %d motif(s), %d sample(s).\n", run.Name, len(res.Motifs.Unique()), len(run.Samples))
		return err
	case "start":
		res, err := svc.Start(ctx, run)
		if err != nil {
			writeViolations(stderr, res.Preflight.Violations)
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\tRUNNING\n", res.RunID)
		return err
	case "finish":
		res, err := svc.Finish(ctx, run, !opts.failed)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\t%s\t%s\n", res.RunID, res.State, res.Report.Path)
		return err
	case "report":
		res, err := svc.WriteReport(ctx, run)
		if err != nil {
			return err
		}
		if opts.print {
			_, err = io.WriteString(stdout, res.Text)
			return err
		}
		_, err = fmt.Fprintln(stdout, res.Path)
		return err
	}
	return fmt.Errorf("unhandled command %q", cmd)
}

func writeViolations(w io.Writer, violations []error) {
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "  - %v\n", v)
	}
}

func status(ctx context.Context, svc *core.Service, ids []string, asJSON bool, w io.Writer) error {
	statuses, err := svc.Statuses(ctx, ids)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}
	var b strings.Builder
	for _, st := range statuses {
		state := "-"
		if st.Present {
			state = string(st.State)
		}
		fmt.Fprintf(&b, "%s\t%s\n", st.RunID, state)
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func history(ctx context.Context, svc *core.Service, runID string, asJSON bool, w io.Writer) error {
	entries, err := svc.History(ctx, runID)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	var b strings.Builder
	for _, e := range entries {
		prev := e.Previous
		if prev == "" {
			prev = "-"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s -> %s\t%s\n", e.RecordedAt.Format(time.RFC3339), e.Operation, prev, e.State, e.ID)
	}
	_, err = io.WriteString(w, b.String())
	return err
}
