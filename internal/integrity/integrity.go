// Package integrity runs the pre-run input checks. Every check inspects all
// of its inputs and reports the complete set of offenders in one error.
package integrity

import (
	"errors"
	"io/fs"
	"os"
	"sort"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/catalog"
)

// CheckFilesExist fails with *MissingFileError when any path is absent.
func CheckFilesExist(paths []string) error {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingFileError{Paths: missing}
	}
	return nil
}

// CheckMinimumSize fails with *UndersizedFileError for every regular file
// under minKilobytes*1024 bytes. Directories are not measured. Paths that
// cannot be stat'ed are joined in as a *MissingFileError.
func CheckMinimumSize(paths []string, minKilobytes int64) error {
	threshold := minKilobytes * 1024
	var small, missing []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			missing = append(missing, p)
			continue
		}
		if info.IsDir() {
			continue
		}
		if info.Size() < threshold {
			small = append(small, p)
		}
	}
	var errs []error
	if len(small) > 0 {
		errs = append(errs, &UndersizedFileError{Paths: small, MinKilobytes: minKilobytes})
	}
	if len(missing) > 0 {
		errs = append(errs, &MissingFileError{Paths: missing})
	}
	return errors.Join(errs...)
}

// CheckReferenceCompleteness requires the catalog keys to equal the set of
// requested motifs, and each requested motif's own folder to be a directory.
func CheckReferenceCompleteness(cat catalog.ReferenceCatalog, motifs catalog.MotifSet) error {
	requested := make(map[string]struct{}, len(motifs))
	missing := make(map[string]struct{})
	for _, m := range motifs {
		requested[m] = struct{}{}
		p, ok := cat[m]
		if !ok || !isDir(p) {
			missing[m] = struct{}{}
		}
	}
	var extraneous []string
	for k := range cat {
		if _, ok := requested[k]; !ok {
			extraneous = append(extraneous, k)
		}
	}
	if len(missing) == 0 && len(extraneous) == 0 {
		return nil
	}
	sort.Strings(extraneous)
	return &MissingReferenceError{Missing: sortedKeys(missing), Extraneous: extraneous}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode()&fs.ModeType == fs.ModeDir
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
