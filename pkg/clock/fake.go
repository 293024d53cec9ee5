package clock

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a deterministic Clock for tests. Sleep returns immediately
// after advancing the fake time, Uniform returns the lower bound and
// Float64 returns a fixed value unless overridden.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	rand    float64
	slept   []time.Duration
	uniform func(min, max time.Duration) time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SetNow moves the fake time to an absolute instant.
func (c *FakeClock) SetNow(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return true
}

// Slept returns a copy of every duration passed to Sleep.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

func (c *FakeClock) Uniform(min, max time.Duration) time.Duration {
	c.mu.Lock()
	fn := c.uniform
	c.mu.Unlock()
	if fn != nil {
		return fn(min, max)
	}
	return min
}

// SetUniform overrides how Uniform picks within [min, max].
func (c *FakeClock) SetUniform(fn func(min, max time.Duration) time.Duration) {
	c.mu.Lock()
	c.uniform = fn
	c.mu.Unlock()
}

func (c *FakeClock) Float64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rand
}

// SetFloat64 fixes the value returned by Float64.
func (c *FakeClock) SetFloat64(v float64) {
	c.mu.Lock()
	c.rand = v
	c.mu.Unlock()
}
