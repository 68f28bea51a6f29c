package limiter

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaUpdateFromHeader(t *testing.T) {
	quota := NewQuota()

	reset := time.Now().Add(30 * time.Minute).Unix()
	header := http.Header{}
	header.Set("X-RateLimit-Remaining", "42")
	header.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

	quota.UpdateFromHeader(header)

	snap := quota.Snapshot()
	assert.True(t, snap.Known)
	assert.Equal(t, 42, snap.Remaining)
	assert.Equal(t, reset, snap.Reset.Unix())
}

func TestQuotaMissingHeaderLeavesStateUntouched(t *testing.T) {
	quota := NewQuota()
	quota.Update(10, time.Now().Add(time.Hour))

	quota.UpdateFromHeader(http.Header{})

	snap := quota.Snapshot()
	assert.Equal(t, 10, snap.Remaining)
}

func TestQuotaExhausted(t *testing.T) {
	quota := NewQuota()

	// Unknown quota is never exhausted
	assert.False(t, quota.Exhausted(3))

	quota.Update(3, time.Now().Add(time.Hour))
	assert.True(t, quota.Exhausted(3))

	quota.Update(4, time.Now().Add(time.Hour))
	assert.False(t, quota.Exhausted(3))

	// Past reset means the budget is fresh again
	quota.Update(0, time.Now().Add(-time.Minute))
	assert.False(t, quota.Exhausted(3))
}

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(2)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}
