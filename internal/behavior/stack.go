package behavior

import (
	"context"
	"time"

	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	behaviorlog "mine-and-die/agent/logging/behavior"
)

// Stack is a LIFO of states whose bottom element is the base state. The
// base state is never popped, so the stack is never empty.
type Stack struct {
	states  []State
	pub     logging.Publisher
	metrics telemetry.Metrics
}

func NewStack(base State, pub logging.Publisher, metrics telemetry.Metrics) *Stack {
	return &Stack{
		states:  []State{base},
		pub:     logging.OrNop(pub),
		metrics: telemetry.OrNop(metrics),
	}
}

// Run pops the top state if it reports completion and then ticks whichever
// state is on top. At most one state is popped per call.
func (s *Stack) Run(ctx *Context) {
	now := ctx.Now()
	top := s.Top()
	if top.Complete(ctx) {
		if len(s.states) > 1 {
			s.pop(ctx, now)
		} else {
			behaviorlog.BaseCompletionIgnored(context.Background(), s.pub, ctx.Tick(), behaviorlog.StatePayload{
				State: top.String(),
				Depth: 1,
			})
		}
	}
	top = s.Top()
	top.Timing().Start(now)
	top.Tick(ctx)
}

func (s *Stack) pop(ctx *Context, now time.Duration) {
	last := len(s.states) - 1
	popped := s.states[last]
	s.states[last] = nil
	s.states = s.states[:last]
	s.Top().Timing().Reset()

	s.metrics.Add(telemetry.MetricStatesPopped, 1)
	s.metrics.Store(telemetry.MetricStackDepth, uint64(len(s.states)))
	behaviorlog.StatePopped(context.Background(), s.pub, ctx.Tick(), behaviorlog.StatePayload{
		State:         popped.String(),
		Depth:         len(s.states),
		ElapsedMillis: popped.Timing().Elapsed(now).Milliseconds(),
	})
}

// Push places state on top. Its timer starts on its first Tick.
func (s *Stack) Push(ctx *Context, state State) {
	if state == nil {
		return
	}
	state.Timing().Reset()
	s.states = append(s.states, state)
	s.metrics.Add(telemetry.MetricStatesPushed, 1)
	s.metrics.Store(telemetry.MetricStackDepth, uint64(len(s.states)))
	behaviorlog.StatePushed(context.Background(), s.pub, ctx.Tick(), behaviorlog.StatePayload{
		State: state.String(),
		Depth: len(s.states),
	})
}

// Clear drops every state above the base and restarts the base's window.
func (s *Stack) Clear(ctx *Context, reason string) int {
	dropped := len(s.states) - 1
	if dropped == 0 {
		return 0
	}
	for i := 1; i < len(s.states); i++ {
		s.states[i] = nil
	}
	s.states = s.states[:1]
	s.states[0].Timing().Reset()
	s.metrics.Store(telemetry.MetricStackDepth, 1)
	behaviorlog.StackCleared(context.Background(), s.pub, ctx.Tick(), behaviorlog.ClearedPayload{
		Reason:  reason,
		Dropped: dropped,
	})
	return dropped
}

func (s *Stack) Top() State {
	return s.states[len(s.states)-1]
}

func (s *Stack) Base() State {
	return s.states[0]
}

func (s *Stack) Len() int {
	return len(s.states)
}

// Strings describes the stack from base to top.
func (s *Stack) Strings() []string {
	out := make([]string, len(s.states))
	for i, state := range s.states {
		out[i] = state.String()
	}
	return out
}
