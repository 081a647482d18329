package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute, perHour int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, perHour)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl, _ := newTestLimiter(0, 0)
	for range 100 {
		require.NoError(t, rl.Allow("client"))
	}
	minute, hour := rl.Usage("client")
	assert.Equal(t, 100, minute)
	assert.Equal(t, 100, hour)
}

func TestRateLimiter_PerMinute(t *testing.T) {
	rl, clock := newTestLimiter(2, 0)

	require.NoError(t, rl.Allow("a"))
	clock.advance(20 * time.Second)
	require.NoError(t, rl.Allow("a"))

	err := rl.Allow("a")
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Window)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, 40*time.Second, rle.RetryAfter)
	assert.Contains(t, err.Error(), "rate limit exceeded for minute")

	// The first request slides out of the window.
	clock.advance(41 * time.Second)
	require.NoError(t, rl.Allow("a"))
	minute, hour := rl.Usage("a")
	assert.Equal(t, 2, minute)
	assert.Equal(t, 3, hour)
}

func TestRateLimiter_PerHour(t *testing.T) {
	rl, clock := newTestLimiter(0, 3)
	for range 3 {
		require.NoError(t, rl.Allow("a"))
		clock.advance(10 * time.Minute)
	}

	var rle *RateLimitError
	require.ErrorAs(t, rl.Allow("a"), &rle)
	assert.Equal(t, "hour", rle.Window)
	assert.Equal(t, 30*time.Minute, rle.RetryAfter)

	clock.advance(31 * time.Minute)
	assert.NoError(t, rl.Allow("a"))
}

func TestRateLimiter_RejectedNotRecorded(t *testing.T) {
	rl, _ := newTestLimiter(1, 0)
	require.NoError(t, rl.Allow("a"))
	for range 5 {
		require.Error(t, rl.Allow("a"))
	}
	_, hour := rl.Usage("a")
	assert.Equal(t, 1, hour)
}

func TestRateLimiter_ClientsIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, 0)
	require.NoError(t, rl.Allow("a"))
	require.NoError(t, rl.Allow("b"))
	assert.Error(t, rl.Allow("a"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clock := newTestLimiter(10, 0)
	require.NoError(t, rl.Allow("old"))
	clock.advance(2 * time.Hour)
	require.NoError(t, rl.Allow("new"))

	rl.Cleanup()
	assert.NotContains(t, rl.clients, "old")
	assert.Contains(t, rl.clients, "new")
}
