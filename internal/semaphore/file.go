package semaphore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Extension is appended to the run ID to name a marker file.
const Extension = ".sem"

// FileStore keeps one `<runID>.sem` file per run in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir when needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("semaphore: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the marker directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the marker path for runID.
func (s *FileStore) Path(runID string) string { return filepath.Join(s.dir, runID+Extension) }

// Set replaces the marker through a temp file and rename.
func (s *FileStore) Set(ctx context.Context, runID string, state State) error {
	if err := checkWrite(runID, state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+runID+".*.tmp")
	if err != nil {
		return fmt.Errorf("semaphore: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(encode(state)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("semaphore: write %s: %w", runID, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("semaphore: sync %s: %w", runID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("semaphore: close %s: %w", runID, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(runID)); err != nil {
		return fmt.Errorf("semaphore: replace %s: %w", runID, err)
	}
	return nil
}

// Get reads the marker for runID.
func (s *FileStore) Get(ctx context.Context, runID string) (State, bool, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(s.Path(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("semaphore: read %s: %w", runID, err)
	}
	state, err := decode(b)
	if err != nil {
		return "", false, err
	}
	return state, true, nil
}
