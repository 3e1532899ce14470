// Package catalog derives the per-run identifier sets from the filesystem:
// motif reference folders, the motif table and the barcode FASTA.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReferenceCatalog maps a motif identifier to the absolute path of its
// reference folder. Every value is a directory at build time.
type ReferenceCatalog map[string]string

// Keys returns the motif identifiers in sorted order.
func (c ReferenceCatalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the folder for motif and whether it is catalogued.
func (c ReferenceCatalog) Path(motif string) (string, bool) {
	p, ok := c[motif]
	return p, ok
}

// BuildReferenceCatalog lists the immediate subdirectories of root. Plain
// files, and symlinks that do not resolve to a directory, are ignored.
func BuildReferenceCatalog(root string) (ReferenceCatalog, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve %s: %w", root, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("catalog: read reference root: %w", err)
	}
	cat := make(ReferenceCatalog, len(entries))
	for _, entry := range entries {
		full := filepath.Join(abs, entry.Name())
		if !entry.IsDir() {
			if entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			info, err := os.Stat(full)
			if err != nil || !info.IsDir() {
				continue
			}
		}
		cat[entry.Name()] = full
	}
	return cat, nil
}

// MotifSet is the ordered motif list from the motif table. Duplicates are
// kept; use Unique when a set is needed.
type MotifSet []string

// Unique returns the motifs with later duplicates removed.
func (m MotifSet) Unique() MotifSet {
	seen := make(map[string]struct{}, len(m))
	out := make(MotifSet, 0, len(m))
	for _, id := range m {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Duplicates reports the motifs that occur more than once, sorted.
func (m MotifSet) Duplicates() []string {
	return duplicates(m)
}

// ConditionSet is the ordered list of barcode record identifiers.
type ConditionSet []string

// DuplicateConditionError lists every identifier that occurs more than
// once in a barcode collection.
type DuplicateConditionError struct {
	Path string
	IDs  []string
}

func (e *DuplicateConditionError) Error() string {
	return fmt.Sprintf("catalog: duplicate condition identifiers in %s: %s", e.Path, strings.Join(e.IDs, ", "))
}

func duplicates(ids []string) []string {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	var out []string
	for id, n := range counts {
		if n > 1 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
