package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
)

// WriteFile replaces path with text through a temp file in the same directory.
func WriteFile(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("report: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: replace %s: %w", path, err)
	}
	return nil
}

// ArchiveKey is the object key of a run's archived report.
func ArchiveKey(runID string) string { return "reports/" + runID + "/final.log" }

// Archive stores text under ArchiveKey(runID), replacing an earlier copy.
func Archive(ctx context.Context, store blob.Store, runID, text string) (blob.Info, error) {
	info, err := store.Put(ctx, ArchiveKey(runID), strings.NewReader(text), blob.PutOptions{
		ContentType: "text/plain; charset=utf-8",
		Metadata:    map[string]string{"run": runID},
		Replace:     true,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("report: archive %s: %w", runID, err)
	}
	return info, nil
}
