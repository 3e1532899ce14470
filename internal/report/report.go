// Package report assembles the end-of-run log: pipeline identity, reference
// locations, the instance configuration, the run's marker state and every
// cluster error log.
package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/catalog"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

// DefaultErrorSuffix selects cluster error logs when Input.ErrorSuffix is empty.
const DefaultErrorSuffix = ".err"

// Section headers, in output order.
const (
	HeaderPipeline = "### PIPELINE CONFIG ###"
	HeaderInstance = "### INSTANCE CONFIG ###"
	HeaderStatus   = "### ANALYSIS STATUS (SEMAPHORES) ###"
	HeaderLogs     = "### CLUSTER LOGS ###"
)

// Identity names the pipeline build that produced the run.
type Identity struct {
	Name           string
	Version        string
	SourceRevision string
	EngineVersion  string
}

// RunInfo is the per-run instance configuration.
type RunInfo struct {
	Name    string
	Samples map[string]string // sample name -> input path
}

// Input gathers everything ComposeFinalReport reads.
type Input struct {
	Identity      Identity
	References    map[string]string // pipeline-level reference files and settings
	Catalog       catalog.ReferenceCatalog
	Config        RunInfo
	Motifs        catalog.MotifSet
	Semaphores    semaphore.Store
	ClusterLogDir string // may be empty or absent; the log section is then empty
	ErrorSuffix   string
}

// SemaphoreMissingError is returned when the run has no marker.
type SemaphoreMissingError struct {
	RunID string
}

func (e *SemaphoreMissingError) Error() string {
	return fmt.Sprintf("report: no semaphore for run %s", e.RunID)
}

// ComposeFinalReport renders the report text. Map-valued sections and the
// log listing are sorted so the output is reproducible.
func ComposeFinalReport(ctx context.Context, in Input) (string, error) {
	if in.Semaphores == nil {
		return "", errors.New("report: no semaphore store")
	}
	state, ok, err := in.Semaphores.Get(ctx, in.Config.Name)
	if err != nil {
		return "", fmt.Errorf("report: read semaphore: %w", err)
	}
	if !ok {
		return "", &SemaphoreMissingError{RunID: in.Config.Name}
	}
	logs, err := listLogs(in.ClusterLogDir, suffixOrDefault(in.ErrorSuffix))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(HeaderPipeline + "\n")
	fmt.Fprintf(&b, "Pipeline name: %s\n", in.Identity.Name)
	fmt.Fprintf(&b, "Pipeline version: %s\n", in.Identity.Version)
	fmt.Fprintf(&b, "Git log of prod: %s\n", in.Identity.SourceRevision)
	fmt.Fprintf(&b, "Required Snakemake version: %s\n", in.Identity.EngineVersion)
	b.WriteString("Reference files and directories:\n")
	writePairs(&b, "\t%s: %s\n", in.References)
	b.WriteString("Motif reference folders:\n")
	writePairs(&b, "\t%s: %s\n", in.Catalog)

	b.WriteString("\n" + HeaderInstance + "\n")
	fmt.Fprintf(&b, "Config processed: %s\n", in.Config.Name)
	b.WriteString("Samples processed:\n")
	writePairs(&b, "%s\t%s\n", in.Config.Samples)
	b.WriteString("Motifs processed:\n")
	for _, m := range in.Motifs {
		b.WriteString(m + "\n")
	}

	b.WriteString("\n" + HeaderStatus + "\n")
	fmt.Fprintf(&b, "%s\t%s\n", in.Config.Name, state)

	b.WriteString("\n" + HeaderLogs + "\n")
	for _, name := range logs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := os.ReadFile(filepath.Join(in.ClusterLogDir, name))
		if err != nil {
			return "", fmt.Errorf("report: read cluster log %s: %w", name, err)
		}
		b.WriteString("### Logfile " + name + "\n")
		b.Write(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func suffixOrDefault(s string) string {
	if s == "" {
		return DefaultErrorSuffix
	}
	return s
}

func writePairs(b *strings.Builder, format string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, format, k, m[k])
	}
}

// listLogs returns the sorted names of regular files in dir ending in suffix.
func listLogs(dir, suffix string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: list cluster logs: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
