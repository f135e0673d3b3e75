package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testClock is a settable clock for the limiter.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(t, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("192.168.1.1"), "Request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.1"), "6th request should be denied")
}

func TestRateLimiterMultipleClients(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	}

	assert.False(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)
	ip := "192.168.1.1"

	assert.True(t, rl.Allow(ip))
	clock.t = clock.t.Add(30 * time.Second)
	assert.True(t, rl.Allow(ip))
	assert.False(t, rl.Allow(ip))

	// The first hit leaves the window, the second does not.
	clock.t = clock.t.Add(31 * time.Second)
	assert.True(t, rl.Allow(ip))
	assert.False(t, rl.Allow(ip))
}

func TestRateLimiterRetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)
	ip := "192.168.1.1"

	assert.Equal(t, 0, rl.RetryAfter(ip))

	rl.Allow(ip)
	clock.t = clock.t.Add(10*time.Second + 500*time.Millisecond)
	rl.Allow(ip)
	assert.False(t, rl.Allow(ip))

	// 49.5s remain for the oldest hit, rounded up.
	assert.Equal(t, 50, rl.RetryAfter(ip))
}

func TestRateLimiterSweep(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("a")
	rl.Allow("b")
	clock.t = clock.t.Add(2 * time.Minute)
	rl.Allow("b")

	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.hits, "a")
	assert.Len(t, rl.hits["b"], 1)
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := NewRateLimiter(1)
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}
