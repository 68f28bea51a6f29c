// Package errs defines the error taxonomy shared by the API caller,
// the models and the crawler. Callers match with errors.As.
package errs

import (
	"fmt"
	"net/http"
	"time"
)

// RateLimited means the API quota is exhausted until Reset. The run must
// halt at the next safe boundary; retrying before Reset is pointless.
type RateLimited struct {
	Remaining int
	Reset     time.Time
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("github api rate limit exhausted (remaining=%d, reset=%s)",
		e.Remaining, e.Reset.Format(time.RFC3339))
}

// Upstream is a non-rate-limit API failure scoped to a single endpoint call.
// The affected repository is skipped, the run continues.
type Upstream struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *Upstream) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github api error for %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("github api error for %s: status %d", e.Endpoint, e.Status)
}

func (e *Upstream) Unwrap() error {
	return e.Err
}

func (e *Upstream) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Storage wraps a database failure. It aborts the current repository's
// transaction and halts the run; prior commits remain valid.
type Storage struct {
	Op  string
	Err error
}

func (e *Storage) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *Storage) Unwrap() error {
	return e.Err
}
