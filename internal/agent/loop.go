package agent

import (
	"context"
	"time"
)

// Loop calls Agent.Tick on a fixed cadence until its context ends.
type Loop struct {
	agent    *Agent
	interval time.Duration
	ticks    <-chan time.Time
	before   func(dt time.Duration)
	after    func(Snapshot)
}

type LoopOption func(*Loop)

// WithTicks drives the loop from ch instead of a ticker.
func WithTicks(ch <-chan time.Time) LoopOption {
	return func(l *Loop) { l.ticks = ch }
}

// WithBeforeTick runs fn with the configured interval ahead of every tick;
// the demo uses it to advance the simulated world.
func WithBeforeTick(fn func(dt time.Duration)) LoopOption {
	return func(l *Loop) { l.before = fn }
}

// WithSnapshotHook receives every tick's snapshot.
func WithSnapshotHook(fn func(Snapshot)) LoopOption {
	return func(l *Loop) { l.after = fn }
}

func NewLoop(agent *Agent, interval time.Duration, opts ...LoopOption) *Loop {
	l := &Loop{agent: agent, interval: interval}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run blocks until ctx is cancelled or the tick channel closes.
func (l *Loop) Run(ctx context.Context) error {
	ticks := l.ticks
	if ticks == nil {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			if l.before != nil {
				l.before(l.interval)
			}
			snap := l.agent.Tick(ctx)
			if l.after != nil {
				l.after(snap)
			}
		}
	}
}
