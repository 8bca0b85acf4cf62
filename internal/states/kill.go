package states

import (
	"fmt"
	"time"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/env"
)

// Kill closes to attack range and attacks at a fixed cadence until the
// target dies or disappears.
type Kill struct {
	behavior.StateTimer
	cfg      *Config
	target   env.EntityID
	approach approach

	lastAttack time.Duration
	attacked   bool
	done       bool
}

func NewKill(cfg *Config, target env.EntityID) *Kill {
	return &Kill{
		StateTimer: behavior.StateTimer{MaxStateTime: cfg.KillTimeout},
		cfg:        cfg,
		target:     target,
	}
}

func (s *Kill) Target() env.EntityID {
	return s.target
}

func (s *Kill) Tick(ctx *behavior.Context) {
	e, ok := ctx.Cache.Get(s.target)
	if !ok || !e.IsUnit() || e.Dead() {
		s.done = true
		return
	}
	arrived, err := s.approach.step(ctx, s.cfg, e.Position, s.cfg.InteractRange)
	if err != nil || s.approach.stalled(s.cfg.StallTicks) {
		ctx.Ban(s.target, s.cfg.BlacklistDuration)
		s.done = true
		return
	}
	if !arrived {
		return
	}
	now := ctx.Now()
	if s.attacked && now-s.lastAttack < s.cfg.AttackInterval {
		return
	}
	if err := ctx.Actuator.Interact(s.target); err != nil {
		return
	}
	s.attacked = true
	s.lastAttack = now
}

func (s *Kill) Complete(ctx *behavior.Context) bool {
	if s.done {
		return true
	}
	e, ok := ctx.Cache.Get(s.target)
	if !ok {
		return true
	}
	if e.Dead() {
		// corpses turn lootable after the loot view last admitted them
		if ctx.Loot != nil {
			ctx.Loot.Rescan()
		}
		if ctx.Planner != nil {
			ctx.Planner.Invalidate()
		}
		return true
	}
	if ctx.TimedOut(s) {
		ctx.Ban(s.target, s.cfg.BlacklistDuration)
		return true
	}
	return false
}

func (s *Kill) String() string {
	return fmt.Sprintf("Kill(%d)", s.target)
}
