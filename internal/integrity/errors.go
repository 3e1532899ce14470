package integrity

import (
	"fmt"
	"strings"
)

// MissingFileError lists every path that does not exist, in input order.
type MissingFileError struct {
	Paths []string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("integrity: %d missing file(s): %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

// UndersizedFileError lists every regular file smaller than the threshold.
type UndersizedFileError struct {
	Paths        []string
	MinKilobytes int64
}

func (e *UndersizedFileError) Error() string {
	return fmt.Sprintf("integrity: %d file(s) smaller than %d KB: %s", len(e.Paths), e.MinKilobytes, strings.Join(e.Paths, ", "))
}

// MissingReferenceError reports the mismatch between requested motifs and
// the reference catalog. Missing holds requested motifs with no usable
// reference folder; Extraneous holds catalogued folders nobody asked for.
type MissingReferenceError struct {
	Missing    []string
	Extraneous []string
}

func (e *MissingReferenceError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing references: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extraneous) > 0 {
		parts = append(parts, "unrequested references: "+strings.Join(e.Extraneous, ", "))
	}
	return "integrity: " + strings.Join(parts, "; ")
}
