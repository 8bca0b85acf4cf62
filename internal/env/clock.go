package env

import (
	"sync"
	"time"
)

// Clock is the process-wide monotonic time source. Now returns the elapsed
// time since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts functions into the Clock interface.
type ClockFunc func() time.Duration

func (f ClockFunc) Now() time.Duration {
	return f()
}

// SystemClock reads the monotonic component of time.Now relative to its
// construction.
type SystemClock struct {
	origin time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.origin)
}

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. Negative deltas are ignored so the clock
// stays monotonic.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	return c.now
}
