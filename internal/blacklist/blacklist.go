// Package blacklist keeps recently used targets out of selection for a while.
package blacklist

import (
	"time"

	"mine-and-die/agent/internal/env"
)

// List is the in-memory implementation of env.Blacklist.
type List struct {
	clock   env.Clock
	expires map[env.EntityID]time.Duration
}

var _ env.Blacklist = (*List)(nil)

func New(clock env.Clock) *List {
	return &List{clock: clock, expires: make(map[env.EntityID]time.Duration)}
}

// Add excludes id for d. A later Add only extends an existing entry.
func (l *List) Add(id env.EntityID, d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	until := l.clock.Now() + d
	if current, ok := l.expires[id]; ok && current >= until {
		return
	}
	l.expires[id] = until
}

// Contains reports whether id is still excluded. Expired entries are pruned.
func (l *List) Contains(id env.EntityID) bool {
	if l == nil {
		return false
	}
	until, ok := l.expires[id]
	if !ok {
		return false
	}
	if l.clock.Now() >= until {
		delete(l.expires, id)
		return false
	}
	return true
}

func (l *List) Remove(id env.EntityID) {
	if l == nil {
		return
	}
	delete(l.expires, id)
}

// Prune drops expired entries and returns how many remain.
func (l *List) Prune() int {
	if l == nil {
		return 0
	}
	now := l.clock.Now()
	for id, until := range l.expires {
		if now >= until {
			delete(l.expires, id)
		}
	}
	return len(l.expires)
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.expires)
}
