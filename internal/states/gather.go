package states

import (
	"fmt"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/env"
)

const maxInteractFailures = 3

// Gather walks to a resource node and harvests it. It completes when the node
// vanishes, the harvest cast ends, combat starts or time runs out.
type Gather struct {
	behavior.StateTimer
	cfg      *Config
	target   env.EntityID
	approach approach

	started  bool
	failures int
	done     bool
}

func NewGather(cfg *Config, target env.EntityID) *Gather {
	return &Gather{
		StateTimer: behavior.StateTimer{MaxStateTime: cfg.GatherTimeout},
		cfg:        cfg,
		target:     target,
	}
}

func (s *Gather) Target() env.EntityID {
	return s.target
}

func (s *Gather) Tick(ctx *behavior.Context) {
	e, ok := ctx.Cache.Get(s.target)
	if !ok || !e.IsObject() {
		s.done = true
		return
	}
	if _, ok := ctx.Local(); !ok {
		return
	}
	if s.started {
		if ctx.Casting() {
			return
		}
		// cast ended without despawning the node
		if !e.Object.InUse {
			s.started = false
		} else {
			return
		}
	} else if e.Object.InUse {
		ctx.Ban(s.target, s.cfg.BlacklistDuration)
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
	if err := ctx.Actuator.Interact(s.target); err != nil {
		s.failures++
		if s.failures >= maxInteractFailures {
			ctx.Ban(s.target, s.cfg.BlacklistDuration)
			s.done = true
		}
		return
	}
	s.started = true
	ctx.Ban(s.target, s.cfg.BlacklistDuration)
}

func (s *Gather) Complete(ctx *behavior.Context) bool {
	if s.done || !ctx.Cache.Contains(s.target) || ctx.InCombat() {
		return true
	}
	if ctx.TimedOut(s) {
		ctx.Ban(s.target, s.cfg.BlacklistDuration)
		return true
	}
	return false
}

func (s *Gather) String() string {
	return fmt.Sprintf("Gather(%d)", s.target)
}
