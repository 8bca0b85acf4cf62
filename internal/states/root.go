package states

import (
	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/scoring"
)

// Root is the base state. It never completes; each tick it turns a pending
// planner task into a child state, or falls back to searching.
type Root struct {
	behavior.StateTimer
	cfg    *Config
	search *Search
}

func NewRoot(cfg *Config) *Root {
	return &Root{cfg: cfg, search: NewSearch(cfg)}
}

func (s *Root) Tick(ctx *behavior.Context) {
	if ctx.Planner != nil {
		if task, ok := ctx.Planner.Take(); ok {
			if child := s.stateFor(ctx, task); child != nil {
				ctx.Push(child)
				return
			}
		}
	}
	if ctx.InCombat() {
		return
	}
	if len(s.search.Candidates(ctx)) > 0 {
		s.search.Prepare()
		ctx.Push(s.search)
	}
}

// stateFor drops tasks whose target went stale while the planner result
// waited.
func (s *Root) stateFor(ctx *behavior.Context, task scoring.Task) behavior.State {
	if ctx.Blacklist != nil && ctx.Blacklist.Contains(task.Target) {
		return nil
	}
	e, ok := ctx.Cache.Get(task.Target)
	if !ok {
		return nil
	}
	switch task.Kind {
	case scoring.TaskGather:
		if e.IsObject() && !e.Object.InUse {
			return NewGather(s.cfg, task.Target)
		}
	case scoring.TaskLoot:
		if e.Lootable() {
			return NewLoot(s.cfg, task.Target)
		}
	case scoring.TaskKill:
		if e.IsUnit() && !e.Dead() {
			return NewKill(s.cfg, task.Target)
		}
	}
	return nil
}

func (s *Root) Complete(*behavior.Context) bool {
	return false
}

func (s *Root) String() string {
	return "Root"
}
