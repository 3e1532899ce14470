package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

// Run is one analysis instance as submitted by the operator.
type Run struct {
	Name          string            `yaml:"name"`
	ReferenceRoot string            `yaml:"reference_root"`
	MotifTable    string            `yaml:"motif_table"`
	BarcodeFasta  string            `yaml:"barcode_fasta,omitempty"`
	Samples       map[string]string `yaml:"samples"`
	InputFiles    []string          `yaml:"input_files,omitempty"`
	MinSizeKB     int64             `yaml:"min_size_kb,omitempty"`
	ClusterLogDir string            `yaml:"cluster_log_dir,omitempty"`

	// Path is the file the run was loaded from.
	Path string `yaml:"-"`
}

// LoadRun parses a run configuration. Relative paths resolve against the
// directory holding the file; a missing name falls back to the file stem.
func LoadRun(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Run{}, fmt.Errorf("config: run file %s not found: %w", path, err)
		}
		return Run{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var r Run
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Run{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: %w", err)
	}
	r.Path = abs
	r.normalize(filepath.Dir(abs))
	if err := r.validate(); err != nil {
		return Run{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return r, nil
}

func (r *Run) normalize(base string) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" && r.Path != "" {
		stem := filepath.Base(r.Path)
		r.Name = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	r.ReferenceRoot = resolvePath(base, r.ReferenceRoot)
	r.MotifTable = resolvePath(base, r.MotifTable)
	r.BarcodeFasta = resolvePath(base, r.BarcodeFasta)
	r.ClusterLogDir = resolvePath(base, r.ClusterLogDir)
	samples := make(map[string]string, len(r.Samples))
	for name, p := range r.Samples {
		samples[strings.TrimSpace(name)] = resolvePath(base, p)
	}
	r.Samples = samples
	inputs := make([]string, 0, len(r.InputFiles))
	for _, p := range r.InputFiles {
		if p = resolvePath(base, p); p != "" {
			inputs = append(inputs, p)
		}
	}
	r.InputFiles = inputs
}

func (r *Run) validate() error {
	if err := semaphore.ValidateRunID(r.Name); err != nil {
		return err
	}
	if r.ReferenceRoot == "" {
		return fmt.Errorf("reference_root is required")
	}
	if r.MotifTable == "" {
		return fmt.Errorf("motif_table is required")
	}
	if r.MinSizeKB < 0 {
		return fmt.Errorf("min_size_kb must not be negative")
	}
	for name, p := range r.Samples {
		if name == "" {
			return fmt.Errorf("samples: empty sample name")
		}
		if p == "" {
			return fmt.Errorf("samples: %s has no path", name)
		}
	}
	return nil
}

// SampleNames returns the sample names in sorted order.
func (r Run) SampleNames() []string {
	names := make([]string, 0, len(r.Samples))
	for name := range r.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredFiles lists every file the run reads, in a stable order: the motif
// table, the barcode FASTA, sample inputs by name, then extra inputs.
func (r Run) RequiredFiles() []string {
	files := []string{r.MotifTable}
	if r.BarcodeFasta != "" {
		files = append(files, r.BarcodeFasta)
	}
	for _, name := range r.SampleNames() {
		files = append(files, r.Samples[name])
	}
	return append(files, r.InputFiles...)
}

// SizedFiles lists the inputs subject to the minimum size check.
func (r Run) SizedFiles() []string {
	files := make([]string, 0, len(r.Samples)+len(r.InputFiles))
	for _, name := range r.SampleNames() {
		files = append(files, r.Samples[name])
	}
	return append(files, r.InputFiles...)
}
