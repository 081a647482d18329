package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter caps how many requests each client may make per minute and
// per hour. It keeps a sliding log of request times per client.
type RateLimiter struct {
	mu sync.Mutex

	perMinute int
	perHour   int

	clients map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter. A zero limit disables that window.
func NewRateLimiter(perMinute, perHour int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		clients:   make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Allow records a request from client and returns a *RateLimitError when
// either window is full. Rejected requests are not recorded.
func (rl *RateLimiter) Allow(client string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	log := prune(rl.clients[client], now.Add(-time.Hour))

	if rl.perMinute > 0 {
		recent := prune(log, now.Add(-time.Minute))
		if len(recent) >= rl.perMinute {
			rl.clients[client] = log
			return &RateLimitError{Window: "minute", Limit: rl.perMinute, RetryAfter: recent[0].Add(time.Minute).Sub(now)}
		}
	}
	if rl.perHour > 0 && len(log) >= rl.perHour {
		rl.clients[client] = log
		return &RateLimitError{Window: "hour", Limit: rl.perHour, RetryAfter: log[0].Add(time.Hour).Sub(now)}
	}

	rl.clients[client] = append(log, now)
	return nil
}

// Usage returns how many requests client made in the last minute and hour.
func (rl *RateLimiter) Usage(client string) (minute, hour int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	log := prune(rl.clients[client], now.Add(-time.Hour))
	return len(prune(log, now.Add(-time.Minute))), len(log)
}

// Cleanup drops clients without requests in the last hour.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-time.Hour)
	for client, log := range rl.clients {
		if len(prune(log, cutoff)) == 0 {
			delete(rl.clients, client)
		}
	}
}

// prune returns the suffix of the sorted log newer than cutoff.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Window     string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Window, e.Limit, e.RetryAfter.Round(time.Second))
}
