// Package semaphore persists the single current lifecycle state of a run as
// a one-line marker.
package semaphore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle state held by a marker.
type State string

const (
	Running State = "RUNNING"
	Done    State = "DONE"
	Error   State = "ERROR"
)

// Valid reports whether s is one of the three marker states.
func (s State) Valid() bool {
	switch s {
	case Running, Done, Error:
		return true
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == Done || s == Error }

func (s State) String() string { return string(s) }

// ParseState trims surrounding whitespace and validates the value.
func ParseState(raw string) (State, error) {
	s := State(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", &InvalidStateError{Value: raw}
	}
	return s, nil
}

// InvalidStateError is returned for a value outside RUNNING, DONE, ERROR.
type InvalidStateError struct {
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("semaphore: invalid state %q (want RUNNING, DONE or ERROR)", e.Value)
}

// ErrInvalidRunID rejects run IDs that cannot name a single marker.
var ErrInvalidRunID = errors.New("semaphore: invalid run id")

// Store reads and writes run markers. Get reports ok=false, with a nil
// error, when the run has no marker yet.
type Store interface {
	Set(ctx context.Context, runID string, state State) error
	Get(ctx context.Context, runID string) (state State, ok bool, err error)
}

// ValidateRunID rejects empty IDs and IDs with path separators or "..".
func ValidateRunID(runID string) error {
	if strings.TrimSpace(runID) == "" || strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

func checkWrite(runID string, state State) error {
	if !state.Valid() {
		return &InvalidStateError{Value: string(state)}
	}
	return ValidateRunID(runID)
}

func encode(state State) []byte { return []byte(state) }

// decode reads the first line of a marker.
func decode(b []byte) (State, error) {
	line, _, _ := strings.Cut(string(b), "\n")
	return ParseState(line)
}
