package scoring

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle admits at most one recompute per interval of agent clock time.
// The limiter is fed explicit timestamps derived from the agent clock, so it
// never consults wall time.
type Throttle struct {
	interval time.Duration
	limiter  *rate.Limiter
	origin   time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	t := &Throttle{interval: interval, origin: time.Unix(0, 0)}
	t.Reset()
	return t
}

// Allow reports whether a recompute may run at now and consumes the slot.
func (t *Throttle) Allow(now time.Duration) bool {
	if t.interval <= 0 {
		return true
	}
	return t.limiter.AllowN(t.origin.Add(now), 1)
}

// Reset makes the next Allow succeed.
func (t *Throttle) Reset() {
	if t.interval <= 0 {
		t.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	t.limiter = rate.NewLimiter(rate.Every(t.interval), 1)
}

func (t *Throttle) Interval() time.Duration {
	return t.interval
}
