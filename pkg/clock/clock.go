package clock

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts wall time, sleeping and jitter so that every timing
// decision in the gateway can be driven deterministically under test.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled. Returns false on cancel.
	Sleep(ctx context.Context, d time.Duration) bool
	// Uniform returns a random duration in [min, max].
	Uniform(min, max time.Duration) time.Duration
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// SystemClock is the production clock, seeded once at construction.
type SystemClock struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSystemClock() *SystemClock {
	return &SystemClock{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (c *SystemClock) Now() time.Time { return time.Now() }

func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *SystemClock) Uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return min + time.Duration(c.rng.Int63n(int64(max-min)+1))
}

func (c *SystemClock) Float64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}
