package integrity

import "errors"

// Report accumulates violations across several checks.
type Report struct {
	errs []error
}

// Add records err when it is non-nil. Joined errors are flattened so Len
// counts individual violations.
func (r *Report) Add(err error) {
	if err == nil {
		return
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			r.Add(e)
		}
		return
	}
	r.errs = append(r.errs, err)
}

// Len returns the number of recorded violations.
func (r *Report) Len() int { return len(r.errs) }

// Errors returns a copy of the recorded violations.
func (r *Report) Errors() []error {
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Err joins every violation, or returns nil when there are none.
func (r *Report) Err() error { return errors.Join(r.errs...) }
