package agent

import (
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

// Snapshot is the serialisable view of the agent after a tick.
type Snapshot struct {
	Tick       uint64            `json:"tick"`
	TimeMillis int64             `json:"timeMillis"`
	MapID      uint32            `json:"mapId"`
	Local      *LocalSummary     `json:"local,omitempty"`
	Stack      []string          `json:"stack"`
	Entities   int               `json:"entities"`
	Views      map[string]int    `json:"views"`
	BestUnit   *UnitSummary      `json:"bestUnit,omitempty"`
	NextTask   *TaskSummary      `json:"nextTask,omitempty"`
	Blacklist  int               `json:"blacklisted"`
	Metrics    map[string]uint64 `json:"metrics"`
}

type LocalSummary struct {
	ID       env.EntityID `json:"id"`
	Position geom.Vec3    `json:"position"`
	Health   float64      `json:"health"`
	Dead     bool         `json:"dead"`
	InCombat bool         `json:"inCombat"`
	Casting  bool         `json:"casting"`
}

type UnitSummary struct {
	ID    env.EntityID `json:"id"`
	Score float64      `json:"score"`
}

type TaskSummary struct {
	Kind   string       `json:"kind"`
	Target env.EntityID `json:"target"`
	Score  float64      `json:"score"`
}

func (a *Agent) buildSnapshot() Snapshot {
	snap := Snapshot{
		Tick:       a.cache.Tick(),
		TimeMillis: a.clock.Now().Milliseconds(),
		MapID:      a.cache.MapID(),
		Stack:      a.stack.Strings(),
		Entities:   a.cache.Len(),
		Views:      make(map[string]int, len(a.views)),
		Blacklist:  a.blacklist.Len(),
		Metrics:    a.metrics.Snapshot(),
	}
	if local, ok := a.cache.Local(); ok && local.IsUnit() {
		snap.Local = &LocalSummary{
			ID:       local.ID,
			Position: local.Position,
			Health:   local.Unit.Health,
			Dead:     local.Unit.Dead,
			InCombat: local.Unit.InCombat,
			Casting:  local.Unit.Casting,
		}
	}
	for name, v := range a.views {
		snap.Views[name] = v.Len()
	}
	if best, ok := a.scorer.BestUnit(); ok {
		snap.BestUnit = &UnitSummary{ID: best.ID, Score: best.Score}
	}
	if task, ok := a.planner.NextTask(); ok {
		snap.NextTask = &TaskSummary{Kind: task.Kind.String(), Target: task.Target, Score: task.Score}
	}
	return snap
}
