package states

import "mine-and-die/agent/internal/behavior"

// Dead idles while the local agent is dead.
type Dead struct {
	behavior.StateTimer
	stopped bool
}

func NewDead() *Dead {
	return &Dead{}
}

func (s *Dead) Tick(ctx *behavior.Context) {
	if !s.stopped {
		ctx.Actuator.StopMovement()
		s.stopped = true
	}
}

func (s *Dead) Complete(ctx *behavior.Context) bool {
	local, ok := ctx.Local()
	return ok && !local.Dead()
}

func (s *Dead) String() string {
	return "Dead"
}
