// Package config loads the pipeline-wide settings and the per-run instance
// configuration. Both come from YAML; pipeline settings can be overridden
// through HITRANSMETH_* environment variables at the process boundary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

const (
	defaultName              = "HiTransMeth"
	defaultEngineVersion     = "5.7.4"
	defaultResultsDir        = "./results"
	defaultStatusConcurrency = 8
	envPrefix                = "HITRANSMETH_"
)

// S3Config locates the bucket used by the s3 blob driver.
type S3Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty"`
}

// BlobConfig selects the object store for markers and archived reports.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root,omitempty"`
	S3     S3Config `yaml:"s3"`
}

// MarkerConfig selects where semaphores live.
type MarkerConfig struct {
	Driver string `yaml:"driver"` // fs (results/semaphores) or blob
}

// LedgerConfig selects the transition ledger backend.
type LedgerConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// NotifyConfig configures outgoing notifications. Empty transports are skipped.
type NotifyConfig struct {
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
	SMTPAddr   string   `yaml:"smtp_addr,omitempty"`
	WebhookURL string   `yaml:"webhook_url,omitempty"`
}

// Pipeline holds settings shared by every run.
type Pipeline struct {
	Name              string            `yaml:"name"`
	Version           string            `yaml:"version"`
	SourceRevision    string            `yaml:"source_revision"`
	EngineVersion     string            `yaml:"engine_version"`
	ResultsDir        string            `yaml:"results_dir"`
	WorkDir           string            `yaml:"work_dir"`
	References        map[string]string `yaml:"references"`
	Markers           MarkerConfig      `yaml:"markers"`
	Blob              BlobConfig        `yaml:"blob"`
	Ledger            LedgerConfig      `yaml:"ledger"`
	Notify            NotifyConfig      `yaml:"notify"`
	StatusConcurrency int               `yaml:"status_concurrency"`
}

// DefaultPipeline returns the settings used when no file is given.
func DefaultPipeline() Pipeline {
	p := Pipeline{}
	p.applyDefaults()
	return p
}

// LoadPipeline reads path (optional; empty means defaults only), then applies
// environment overrides, defaults, path normalisation and validation.
func LoadPipeline(path string) (Pipeline, error) {
	var p Pipeline
	base, err := os.Getwd()
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Pipeline{}, fmt.Errorf("config: pipeline file %s not found: %w", path, err)
			}
			return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Pipeline{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
			base = abs
		}
	}
	if err := p.applyEnv(os.Getenv); err != nil {
		return Pipeline{}, fmt.Errorf("config: %w", err)
	}
	p.applyDefaults()
	p.normalize(base)
	if err := p.validate(); err != nil {
		return Pipeline{}, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

func (p *Pipeline) applyEnv(getenv func(string) string) error {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	set("RESULTS_DIR", &p.ResultsDir)
	set("WORK_DIR", &p.WorkDir)
	set("SOURCE_REVISION", &p.SourceRevision)
	set("MARKER_DRIVER", &p.Markers.Driver)
	set("BLOB_DRIVER", &p.Blob.Driver)
	set("BLOB_FS_ROOT", &p.Blob.FSRoot)
	set("BLOB_S3_REGION", &p.Blob.S3.Region)
	set("BLOB_S3_BUCKET", &p.Blob.S3.Bucket)
	set("BLOB_S3_PREFIX", &p.Blob.S3.Prefix)
	set("BLOB_S3_ENDPOINT", &p.Blob.S3.Endpoint)
	set("BLOB_S3_ACCESS_KEY_ID", &p.Blob.S3.AccessKeyID)
	set("BLOB_S3_SECRET_ACCESS_KEY", &p.Blob.S3.SecretAccessKey)
	set("BLOB_S3_SESSION_TOKEN", &p.Blob.S3.SessionToken)
	set("LEDGER_DRIVER", &p.Ledger.Driver)
	set("SQLITE_PATH", &p.Ledger.SQLitePath)
	set("POSTGRES_DSN", &p.Ledger.PostgresDSN)
	set("SMTP_ADDR", &p.Notify.SMTPAddr)
	set("WEBHOOK_URL", &p.Notify.WebhookURL)
	if v := strings.TrimSpace(getenv(envPrefix + "BLOB_S3_PATH_STYLE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sBLOB_S3_PATH_STYLE: %w", envPrefix, err)
		}
		p.Blob.S3.PathStyle = b
	}
	return nil
}

func (p *Pipeline) applyDefaults() {
	if p.Name == "" {
		p.Name = defaultName
	}
	if p.EngineVersion == "" {
		p.EngineVersion = defaultEngineVersion
	}
	if p.ResultsDir == "" {
		p.ResultsDir = defaultResultsDir
	}
	if p.References == nil {
		p.References = map[string]string{}
	}
	if _, ok := p.References["NON_CG_CUTOFF"]; !ok {
		p.References["NON_CG_CUTOFF"] = "0.2"
	}
	if p.Markers.Driver == "" {
		p.Markers.Driver = string(semaphore.DriverFile)
	}
	if p.Blob.Driver == "" {
		p.Blob.Driver = string(blob.DriverFilesystem)
	}
	if p.Ledger.Driver == "" {
		p.Ledger.Driver = string(ledger.DriverSQLite)
	}
	if p.StatusConcurrency <= 0 {
		p.StatusConcurrency = defaultStatusConcurrency
	}
}

func (p *Pipeline) normalize(base string) {
	p.Name = strings.TrimSpace(p.Name)
	p.ResultsDir = resolvePath(base, p.ResultsDir)
	p.WorkDir = resolvePath(base, p.WorkDir)
	p.Markers.Driver = normalizeDriver(p.Markers.Driver)
	p.Blob.Driver = normalizeDriver(p.Blob.Driver)
	p.Ledger.Driver = normalizeDriver(p.Ledger.Driver)
	if p.Blob.FSRoot == "" {
		p.Blob.FSRoot = filepath.Join(p.ResultsDir, "objects")
	} else {
		p.Blob.FSRoot = resolvePath(base, p.Blob.FSRoot)
	}
	if p.Ledger.Driver == string(ledger.DriverSQLite) {
		if p.Ledger.SQLitePath == "" {
			p.Ledger.SQLitePath = filepath.Join(p.ResultsDir, "ledger.db")
		} else {
			p.Ledger.SQLitePath = resolvePath(base, p.Ledger.SQLitePath)
		}
	}
	recipients := p.Notify.Recipients[:0]
	for _, r := range p.Notify.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	p.Notify.Recipients = recipients
}

func (p *Pipeline) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch semaphore.Driver(p.Markers.Driver) {
	case semaphore.DriverFile, semaphore.DriverBlob:
	default:
		return fmt.Errorf("markers.driver must be 'fs' or 'blob'")
	}
	switch blob.Driver(p.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if p.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver must be 'fs', 's3' or 'memory'")
	}
	switch ledger.Driver(p.Ledger.Driver) {
	case ledger.DriverMemory, ledger.DriverSQLite:
	case ledger.DriverPostgres:
		if p.Ledger.PostgresDSN == "" {
			return fmt.Errorf("ledger.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("ledger.driver must be 'memory', 'sqlite' or 'postgres'")
	}
	if p.Notify.SMTPAddr != "" && (p.Notify.Sender == "" || len(p.Notify.Recipients) == 0) {
		return fmt.Errorf("notify.sender and notify.recipients are required with smtp_addr")
	}
	return nil
}

// SemaphoreDir holds one marker file per run.
func (p Pipeline) SemaphoreDir() string { return filepath.Join(p.ResultsDir, "semaphores") }

// RunsDir holds one directory per run.
func (p Pipeline) RunsDir() string { return filepath.Join(p.ResultsDir, "runs") }

// RunDir is the result directory of one run.
func (p Pipeline) RunDir(runID string) string { return filepath.Join(p.RunsDir(), runID) }

// ClusterLogDir is where a run's scheduler logs land when the run file names
// no cluster_log_dir. Empty when no work_dir is configured.
func (p Pipeline) ClusterLogDir(runID string) string {
	if p.WorkDir == "" {
		return ""
	}
	return filepath.Join(p.WorkDir, "logs", runID)
}

// BlobOptions converts the blob section for blob.Open.
func (p Pipeline) BlobOptions() blob.Options {
	return blob.Options{
		Driver: blob.Driver(p.Blob.Driver),
		FSRoot: p.Blob.FSRoot,
		S3: blob.S3Config{
			Region:          p.Blob.S3.Region,
			Bucket:          p.Blob.S3.Bucket,
			Prefix:          p.Blob.S3.Prefix,
			Endpoint:        p.Blob.S3.Endpoint,
			AccessKeyID:     p.Blob.S3.AccessKeyID,
			SecretAccessKey: p.Blob.S3.SecretAccessKey,
			SessionToken:    p.Blob.S3.SessionToken,
			PathStyle:       p.Blob.S3.PathStyle,
		},
	}
}

// LedgerOptions converts the ledger section for ledger.Open.
func (p Pipeline) LedgerOptions() ledger.Options {
	return ledger.Options{
		Driver:      ledger.Driver(p.Ledger.Driver),
		SQLitePath:  p.Ledger.SQLitePath,
		PostgresDSN: p.Ledger.PostgresDSN,
	}
}

func normalizeDriver(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
