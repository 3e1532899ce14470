// Package backup copies files into place without destroying the version
// they replace. An occupied destination is first moved to the lowest free
// `<name>.bkpN` slot.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// DestinationIsDirectoryError is returned when the target path is a directory.
type DestinationIsDirectoryError struct {
	Path string
}

func (e *DestinationIsDirectoryError) Error() string {
	return fmt.Sprintf("backup: %s is a directory, a file was expected", e.Path)
}

// Result describes a completed copy.
type Result struct {
	Destination string
	Backup      string // empty when the destination did not exist
}

// CopyWithBackup copies source to destDir/filename. destDir is created when
// absent.
func CopyWithBackup(source, destDir, filename string) (Result, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return Result{}, fmt.Errorf("backup: invalid file name %q", filename)
	}
	dest := filepath.Join(destDir, filename)
	info, err := os.Lstat(dest)
	exists := err == nil
	switch {
	case err == nil && info.IsDir():
		return Result{}, &DestinationIsDirectoryError{Path: dest}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return Result{}, fmt.Errorf("backup: stat %s: %w", dest, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("backup: create %s: %w", destDir, err)
	}

	// A failed read of source leaves the destination untouched.
	tmp, err := stage(source, destDir)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = os.Remove(tmp) }()

	res := Result{Destination: dest}
	if exists {
		slot, err := freeSlot(dest)
		if err != nil {
			return Result{}, err
		}
		if err := os.Rename(dest, slot); err != nil {
			return Result{}, fmt.Errorf("backup: move %s: %w", dest, err)
		}
		res.Backup = slot
	}
	if err := os.Rename(tmp, dest); err != nil {
		return Result{}, fmt.Errorf("backup: install %s: %w", dest, err)
	}
	return res, nil
}

// Backups lists the existing backup slots of destDir/filename in slot order.
func Backups(destDir, filename string) ([]string, error) {
	dest := filepath.Join(destDir, filename)
	var out []string
	for n := 1; ; n++ {
		slot := dest + ".bkp" + strconv.Itoa(n)
		if _, err := os.Lstat(slot); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return out, nil
			}
			return nil, fmt.Errorf("backup: stat %s: %w", slot, err)
		}
		out = append(out, slot)
	}
}

func freeSlot(dest string) (string, error) {
	for n := 1; ; n++ {
		slot := dest + ".bkp" + strconv.Itoa(n)
		_, err := os.Lstat(slot)
		if errors.Is(err, fs.ErrNotExist) {
			return slot, nil
		}
		if err != nil {
			return "", fmt.Errorf("backup: stat %s: %w", slot, err)
		}
	}
}

func stage(source, dir string) (string, error) {
	in, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("backup: open source: %w", err)
	}
	defer func() { _ = in.Close() }()
	out, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("backup: copy %s: %w", source, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("backup: close staged copy: %w", err)
	}
	return out.Name(), nil
}
