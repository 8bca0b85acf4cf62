package scoring

import (
	"context"
	"time"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	scorelog "mine-and-die/agent/logging/scoring"
)

// TaskKind names what the agent should do next.
type TaskKind uint8

const (
	TaskNone TaskKind = iota
	TaskGather
	TaskLoot
	TaskKill
)

func (k TaskKind) String() string {
	switch k {
	case TaskGather:
		return "gather"
	case TaskLoot:
		return "loot"
	case TaskKill:
		return "kill"
	default:
		return "none"
	}
}

// Task is a planner decision.
type Task struct {
	Kind   TaskKind
	Target env.EntityID
	Score  float64
}

const DefaultPlannerInterval = time.Second

// PlannerConfig tunes task selection. Loot outranks gather at equal
// distance because LootBase defaults higher.
type PlannerConfig struct {
	Interval   time.Duration
	MaxRange   float64
	GatherBase float64
	LootBase   float64
	// HuntWhenIdle turns the best unit into a kill task when nothing can be
	// gathered or looted.
	HuntWhenIdle bool
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Interval:   DefaultPlannerInterval,
		MaxRange:   DefaultMaxRange,
		GatherBase: 500,
		LootBase:   600,
	}
}

// Planner turns views and the unit scorer into the agent's next task. A
// pending task is handed out once through Take.
type Planner struct {
	cfg      PlannerConfig
	harvest  ObjectSource
	loot     UnitSource
	units    *UnitScorer
	throttle *Throttle
	pub      logging.Publisher
	metrics  telemetry.Metrics

	next    Task
	pending bool
}

// NewPlanner wires the planner; any source may be nil.
func NewPlanner(cfg PlannerConfig, harvest ObjectSource, loot UnitSource, units *UnitScorer, pub logging.Publisher, metrics telemetry.Metrics) *Planner {
	if cfg.MaxRange <= 0 {
		cfg.MaxRange = DefaultMaxRange
	}
	return &Planner{
		cfg:      cfg,
		harvest:  harvest,
		loot:     loot,
		units:    units,
		throttle: NewThrottle(cfg.Interval),
		pub:      logging.OrNop(pub),
		metrics:  telemetry.OrNop(metrics),
	}
}

// Update recomputes the next task when the throttle allows.
func (p *Planner) Update(now time.Duration, ctx Context) bool {
	if !p.throttle.Allow(now) {
		return false
	}
	p.Recompute(ctx)
	return true
}

// Recompute selects the next task immediately. In combat the best unit wins;
// otherwise the highest scoring loot or gather target, and optionally the
// best unit when hunting is enabled.
func (p *Planner) Recompute(ctx Context) {
	p.metrics.Add(telemetry.MetricPlannerRuns, 1)
	previous, hadPending := p.next, p.pending

	task, ok := p.selectTask(ctx)
	p.next, p.pending = task, ok
	if ok && (!hadPending || previous.Kind != task.Kind || previous.Target != task.Target) {
		scorelog.TaskSelected(context.Background(), p.pub, ctx.Tick,
			logging.Ref(refKindFor(task.Kind), uint64(task.Target)),
			scorelog.TaskPayload{Kind: task.Kind.String(), Score: task.Score})
	}
}

func (p *Planner) selectTask(ctx Context) (Task, bool) {
	if ctx.InCombat {
		if best, ok := p.bestUnit(); ok {
			return Task{Kind: TaskKill, Target: best.ID, Score: best.Score}, true
		}
	}

	var best Task
	found := false
	consider := func(kind TaskKind, base float64, e *entity.Entity) {
		if ctx.Blacklist != nil && ctx.Blacklist.Contains(e.ID) {
			return
		}
		dist := geom.Distance(ctx.Position, e.Position)
		if dist > p.cfg.MaxRange {
			return
		}
		score := base - dist
		if !found || score > best.Score {
			best = Task{Kind: kind, Target: e.ID, Score: score}
			found = true
		}
	}
	if p.loot != nil {
		for _, e := range sortedEntities(p.loot.Units()) {
			if e.Lootable() {
				consider(TaskLoot, p.cfg.LootBase, e)
			}
		}
	}
	if p.harvest != nil {
		for _, e := range sortedEntities(p.harvest.Objects()) {
			consider(TaskGather, p.cfg.GatherBase, e)
		}
	}
	if found {
		return best, true
	}

	if p.cfg.HuntWhenIdle {
		if unit, ok := p.bestUnit(); ok {
			return Task{Kind: TaskKill, Target: unit.ID, Score: unit.Score}, true
		}
	}
	return Task{}, false
}

func (p *Planner) bestUnit() (Candidate, bool) {
	if p.units == nil {
		return Candidate{}, false
	}
	return p.units.BestUnit()
}

// NextTask peeks at the pending task.
func (p *Planner) NextTask() (Task, bool) {
	return p.next, p.pending
}

// Take returns the pending task and clears it so it is acted on once.
func (p *Planner) Take() (Task, bool) {
	task, ok := p.next, p.pending
	p.next, p.pending = Task{}, false
	return task, ok
}

// Invalidate lets the next Update recompute regardless of the throttle.
func (p *Planner) Invalidate() {
	p.throttle.Reset()
}

func refKindFor(kind TaskKind) logging.EntityKind {
	if kind == TaskGather {
		return logging.EntityKindObject
	}
	return logging.EntityKindUnit
}
