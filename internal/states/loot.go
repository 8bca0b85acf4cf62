package states

import (
	"fmt"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/env"
)

// Loot walks to a lootable corpse and loots it. It completes when the corpse
// vanishes or has nothing left, combat starts or time runs out.
type Loot struct {
	behavior.StateTimer
	cfg      *Config
	target   env.EntityID
	approach approach

	looted   bool
	failures int
	done     bool
}

func NewLoot(cfg *Config, target env.EntityID) *Loot {
	return &Loot{
		StateTimer: behavior.StateTimer{MaxStateTime: cfg.LootTimeout},
		cfg:        cfg,
		target:     target,
	}
}

func (s *Loot) Target() env.EntityID {
	return s.target
}

func (s *Loot) Tick(ctx *behavior.Context) {
	e, ok := ctx.Cache.Get(s.target)
	if !ok || !e.Lootable() {
		s.done = true
		return
	}
	if s.looted {
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
	if err := ctx.Actuator.Interact(s.target); err != nil {
		s.failures++
		if s.failures >= maxInteractFailures {
			ctx.Ban(s.target, s.cfg.BlacklistDuration)
			s.done = true
		}
		return
	}
	s.looted = true
	ctx.Ban(s.target, s.cfg.BlacklistDuration)
}

func (s *Loot) Complete(ctx *behavior.Context) bool {
	if s.done || ctx.InCombat() {
		return true
	}
	e, ok := ctx.Cache.Get(s.target)
	if !ok || !e.Lootable() {
		return true
	}
	if ctx.TimedOut(s) {
		ctx.Ban(s.target, s.cfg.BlacklistDuration)
		return true
	}
	return false
}

func (s *Loot) String() string {
	return fmt.Sprintf("Loot(%d)", s.target)
}
