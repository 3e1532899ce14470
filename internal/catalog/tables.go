package catalog

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	fastats "github.com/jgbaldwinbrown/fastats/pkg"
	"github.com/jgbaldwinbrown/iter"
)

// ErrNoHeader is returned for a motif table with no rows at all.
var ErrNoHeader = errors.New("catalog: motif table has no header row")

// ExtractMotifList returns the first-column values of a tab-separated table,
// skipping the header row. Gzipped tables are read transparently.
func ExtractMotifList(path string) (motifs MotifSet, err error) {
	r, err := csvh.OpenMaybeGz(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open motif table: %w", err)
	}
	defer func() { csvh.DeferE(&err, r.Close()) }()
	return readMotifs(r)
}

func readMotifs(r io.Reader) (MotifSet, error) {
	cr := csvh.CsvIn(r)
	header := true
	motifs := MotifSet{}
	for l, e := cr.Read(); e != io.EOF; l, e = cr.Read() {
		if e != nil {
			return nil, fmt.Errorf("catalog: read motif table: %w", e)
		}
		if header {
			header = false
			continue
		}
		if len(l) == 0 {
			continue
		}
		id := strings.TrimSpace(l[0])
		if id == "" {
			continue
		}
		motifs = append(motifs, id)
	}
	if header {
		return nil, ErrNoHeader
	}
	return motifs, nil
}

// ExtractConditionList returns the record identifier of every FASTA entry in
// file order. The identifier is the header up to the first whitespace.
// Repeated identifiers fail with *DuplicateConditionError.
func ExtractConditionList(path string) (conds ConditionSet, err error) {
	r, err := csvh.OpenMaybeGz(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open barcode fasta: %w", err)
	}
	defer func() { csvh.DeferE(&err, r.Close()) }()

	entries, err := iter.Collect[fastats.FaEntry](fastats.ParseFasta(r))
	if err != nil {
		return nil, fmt.Errorf("catalog: parse barcode fasta: %w", err)
	}
	conds = make(ConditionSet, 0, len(entries))
	for i, entry := range entries {
		fields := strings.Fields(entry.Header)
		if len(fields) == 0 {
			return nil, fmt.Errorf("catalog: barcode record %d in %s has no identifier", i+1, path)
		}
		conds = append(conds, fields[0])
	}
	if dups := duplicates(conds); len(dups) > 0 {
		return nil, &DuplicateConditionError{Path: path, IDs: dups}
	}
	return conds, nil
}
