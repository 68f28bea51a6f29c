// Package crawlinfo carries the run summary returned to the invocation
// driver.
package crawlinfo

import (
	"fmt"
	"time"
)

type HaltReason string

const (
	HaltNone        HaltReason = ""
	HaltRateLimited HaltReason = "rate_limited"
	HaltTimeBudget  HaltReason = "time_budget"
	HaltStorage     HaltReason = "storage_failure"
	HaltCanceled    HaltReason = "canceled"
	HaltError       HaltReason = "error"
)

// Report is the outcome of a single crawl invocation.
type Report struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Discovered   int
	Updated      int
	Unchanged    int
	Failed       int
	ActivityRows int
	Ranked       int
	Halt         HaltReason
}

func (r *Report) Halted() bool {
	return r.Halt != HaltNone
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) Summary() string {
	status := "completed"
	if r.Halted() {
		status = fmt.Sprintf("halted (%s)", r.Halt)
	}
	return fmt.Sprintf(
		"%s in %v: discovered=%d updated=%d unchanged=%d failed=%d activity_rows=%d ranked=%d",
		status, r.Duration().Round(time.Millisecond),
		r.Discovered, r.Updated, r.Unchanged, r.Failed, r.ActivityRows, r.Ranked,
	)
}
