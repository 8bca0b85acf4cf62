package states

import (
	"errors"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

const progressEpsilon = 0.5

var errNoLocal = errors.New("states: local agent not tracked")

// approach walks the agent towards a point. MoveTo is reissued only when the
// destination drifts beyond the move tolerance; ticks without the distance
// shrinking by progressEpsilon count as stalled.
type approach struct {
	dest   geom.Vec3
	moving bool
	best   float64
	stall  int
}

func (a *approach) step(ctx *behavior.Context, cfg *Config, target geom.Vec3, within float64) (bool, error) {
	local, ok := ctx.Local()
	if !ok {
		return false, errNoLocal
	}
	dist := geom.Distance(local.Position, target)
	if dist <= within {
		if a.moving {
			ctx.Actuator.StopMovement()
			a.moving = false
		}
		a.stall = 0
		return true, nil
	}
	if !a.moving || geom.Distance(a.dest, target) > cfg.MoveTolerance {
		if err := ctx.Actuator.MoveTo(target, env.MoveOptions{Tolerance: within}); err != nil {
			return false, err
		}
		a.dest = target
		a.moving = true
		a.best = dist
		a.stall = 0
		return false, nil
	}
	if dist < a.best-progressEpsilon {
		a.best = dist
		a.stall = 0
	} else {
		a.stall++
	}
	return false, nil
}

func (a *approach) stalled(limit int) bool {
	return limit > 0 && a.stall >= limit
}

func (a *approach) reset() {
	*a = approach{}
}
