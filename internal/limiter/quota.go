package limiter

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the upstream quota.
type Snapshot struct {
	Remaining int
	Reset     time.Time
	Known     bool
}

// Quota tracks the remaining GitHub API call budget as reported by the
// X-RateLimit-* headers. It is the single point of truth for all callers
// sharing one client, so every access goes through the mutex.
type Quota struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
}

func NewQuota() *Quota {
	return &Quota{}
}

// Update overwrites the tracked state with values reported by the API.
func (q *Quota) Update(remaining int, reset time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remaining = remaining
	q.reset = reset
	q.known = true
}

// UpdateFromHeader reads X-RateLimit-Remaining and X-RateLimit-Reset.
// Headers the API did not send leave the tracked state untouched.
func (q *Quota) UpdateFromHeader(h http.Header) {
	remainingStr := h.Get("X-RateLimit-Remaining")
	if remainingStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}

	reset := time.Time{}
	if resetStr := h.Get("X-RateLimit-Reset"); resetStr != "" {
		if unix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			reset = time.Unix(unix, 0)
		}
	}

	q.Update(remaining, reset)
}

func (q *Quota) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot{Remaining: q.remaining, Reset: q.reset, Known: q.known}
}

// Exhausted reports whether the budget is at or below the floor while the
// reset time is still ahead. An unknown quota is never exhausted; the first
// real response fills it in.
func (q *Quota) Exhausted(floor int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.known {
		return false
	}
	return q.remaining <= floor && time.Now().Before(q.reset)
}
