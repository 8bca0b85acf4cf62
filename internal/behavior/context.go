package behavior

import (
	"context"
	"time"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/scoring"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/internal/view"
	"mine-and-die/agent/logging"
	behaviorlog "mine-and-die/agent/logging/behavior"
)

// Context carries everything a state may read or act on during a tick.
type Context struct {
	Cache     *entity.Cache
	Actuator  env.Actuator
	Navigator env.Navigator
	Clock     env.Clock
	Blacklist env.Blacklist

	Scorer    *scoring.UnitScorer
	Planner   *scoring.Planner
	Locations *locations.Store

	Harvest  *view.View
	Loot     *view.View
	Hostiles *view.View

	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Stack     *Stack
}

func (c *Context) Now() time.Duration {
	if c.Clock == nil {
		return 0
	}
	return c.Clock.Now()
}

func (c *Context) Tick() uint64 {
	if c.Cache == nil {
		return 0
	}
	return c.Cache.Tick()
}

// Local returns the agent's own record.
func (c *Context) Local() (*entity.Entity, bool) {
	if c.Cache == nil {
		return nil, false
	}
	return c.Cache.Local()
}

// InCombat reports whether the local agent is fighting.
func (c *Context) InCombat() bool {
	local, ok := c.Local()
	return ok && local.IsUnit() && local.Unit.InCombat
}

// Casting reports whether the local agent is busy with a cast or channel.
func (c *Context) Casting() bool {
	local, ok := c.Local()
	return ok && local.IsUnit() && (local.Unit.Casting || local.Unit.Channeling)
}

// Push places s on top of the stack.
func (c *Context) Push(s State) {
	c.Stack.Push(c, s)
}

// Ban blacklists id for d when a blacklist is wired.
func (c *Context) Ban(id env.EntityID, d time.Duration) {
	if c.Blacklist != nil && id != 0 && d > 0 {
		c.Blacklist.Add(id, d)
	}
}

// TimedOut reports whether s exceeded its time budget, publishing the
// timeout when it did. States call it from Complete, which pops them.
func (c *Context) TimedOut(s State) bool {
	timer := s.Timing()
	now := c.Now()
	if !timer.IsOutOfTime(now) {
		return false
	}
	behaviorlog.StateTimedOut(context.Background(), c.Publisher, c.Tick(), behaviorlog.StatePayload{
		State:         s.String(),
		Depth:         c.Stack.Len(),
		ElapsedMillis: timer.Elapsed(now).Milliseconds(),
	})
	telemetry.OrNop(c.Metrics).Add(telemetry.MetricStatesTimedOut, 1)
	return true
}

// ScoringContext describes the agent for the scorer and planner.
func (c *Context) ScoringContext(role scoring.Role) scoring.Context {
	sc := scoring.Context{Role: role, Blacklist: c.Blacklist, Tick: c.Tick()}
	local, ok := c.Local()
	if !ok {
		return sc
	}
	sc.Self = local.ID
	sc.Position = local.Position
	if local.IsUnit() {
		sc.InCombat = local.Unit.InCombat
		sc.TargetID = local.Unit.TargetID
	}
	return sc
}
