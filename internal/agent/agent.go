// Package agent drives one tick of perception, scoring and behavior.
package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/blacklist"
	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/scoring"
	"mine-and-die/agent/internal/states"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/internal/view"
	"mine-and-die/agent/logging"
)

// ExprView declares a config-driven view.
type ExprView struct {
	Name   string
	Unit   string
	Object string
}

type Config struct {
	Role        scoring.Role
	RescanTicks int
	Resources   env.ResourceFlags
	Cache       entity.Config
	Scoring     scoring.Config
	Planner     scoring.PlannerConfig
	States      states.Config
	Locations   locations.Config
	Views       []ExprView
}

func DefaultConfig() Config {
	return Config{
		RescanTicks: 10,
		Resources:   env.ResourceHerb | env.ResourceOre,
		Scoring:     scoring.Config{Weights: scoring.DefaultWeights(), Interval: scoring.DefaultInterval},
		Planner:     scoring.DefaultPlannerConfig(),
		States:      states.DefaultConfig(),
	}
}

type Deps struct {
	Host      env.Host
	Clock     env.Clock
	Publisher logging.Publisher
	Metrics   *telemetry.Counters
	Logger    telemetry.Logger
	// Backend persists discovered locations; nil keeps them in memory.
	Backend locations.Backend
}

// Agent owns the per-tick pipeline. Tick must be called from one goroutine;
// Snapshot may be read from any.
type Agent struct {
	cfg     Config
	host    env.Host
	clock   env.Clock
	pub     logging.Publisher
	metrics *telemetry.Counters
	logger  telemetry.Logger

	cache     *entity.Cache
	blacklist *blacklist.List
	views     map[string]*view.View
	viewOrder []string
	scorer    *scoring.UnitScorer
	planner   *scoring.Planner
	store     *locations.Store
	recorder  *locations.Recorder
	stack     *behavior.Stack
	bctx      *behavior.Context

	mu       sync.RWMutex
	snapshot Snapshot
}

const (
	ViewHarvest  = "harvest"
	ViewLoot     = "loot"
	ViewHostiles = "hostiles"
)

func New(cfg Config, deps Deps) (*Agent, error) {
	if deps.Host == nil {
		return nil, errors.New("agent: host is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("agent: clock is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.NewCounters()
	}
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	pub := logging.OrNop(deps.Publisher)

	cache, err := entity.NewCache(cfg.Cache, entity.Deps{
		Percepts:    deps.Host,
		LineOfSight: deps.Host,
		Clock:       deps.Clock,
		Publisher:   pub,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}

	a := &Agent{
		cfg:       cfg,
		host:      deps.Host,
		clock:     deps.Clock,
		pub:       pub,
		metrics:   metrics,
		logger:    logger,
		cache:     cache,
		blacklist: blacklist.New(deps.Clock),
		views:     make(map[string]*view.View),
	}

	a.addView(view.New(ViewHarvest, cache, view.Harvestable(cfg.Resources), metrics))
	a.addView(view.New(ViewLoot, cache, view.Lootable(), metrics))
	a.addView(view.New(ViewHostiles, cache, view.HostileUnits(), metrics))
	for _, decl := range cfg.Views {
		if _, taken := a.views[decl.Name]; taken {
			return nil, fmt.Errorf("view %q: name already in use", decl.Name)
		}
		pred, err := view.CompileExpr(cache, decl.Unit, decl.Object)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", decl.Name, err)
		}
		a.addView(view.New(decl.Name, cache, pred, metrics))
	}

	a.scorer = scoring.NewUnitScorer(cfg.Scoring, a.views[ViewHostiles], cache, pub, metrics)
	a.planner = scoring.NewPlanner(cfg.Planner, a.views[ViewHarvest], a.views[ViewLoot], a.scorer, pub, metrics)
	a.store = locations.NewStore(cfg.Locations, deps.Backend, pub, metrics)
	a.recorder = locations.NewRecorder(a.store, cache)

	statesCfg := cfg.States
	a.bctx = &behavior.Context{
		Cache:     cache,
		Actuator:  deps.Host,
		Navigator: deps.Host,
		Clock:     deps.Clock,
		Blacklist: a.blacklist,
		Scorer:    a.scorer,
		Planner:   a.planner,
		Locations: a.store,
		Harvest:   a.views[ViewHarvest],
		Loot:      a.views[ViewLoot],
		Hostiles:  a.views[ViewHostiles],
		Publisher: pub,
		Metrics:   metrics,
	}
	a.stack = behavior.NewStack(states.NewRoot(&statesCfg), pub, metrics)
	a.bctx.Stack = a.stack
	a.snapshot = a.buildSnapshot()
	return a, nil
}

func (a *Agent) addView(v *view.View) {
	a.views[v.Name()] = v
	a.viewOrder = append(a.viewOrder, v.Name())
}

// Tick runs one pass of the pipeline and returns the resulting snapshot.
func (a *Agent) Tick(ctx context.Context) Snapshot {
	a.interruptOnDeath()

	a.cache.Pulse()
	tick := a.cache.Tick()
	a.store.SetTick(tick)

	rescan := a.cfg.RescanTicks > 0 && tick%uint64(a.cfg.RescanTicks) == 0
	for _, name := range a.viewOrder {
		if rescan {
			a.views[name].Rescan()
		} else {
			a.views[name].ProcessChanges()
		}
	}

	now := a.clock.Now()
	sc := a.bctx.ScoringContext(a.cfg.Role)
	a.scorer.Update(now, sc)
	a.planner.Update(now, sc)

	a.stack.Run(a.bctx)

	if err := a.store.MaybeFlush(ctx, now); err != nil {
		a.logger.Printf("flush locations: %v", err)
	}
	a.blacklist.Prune()
	a.metrics.Add(telemetry.MetricTicks, 1)

	snap := a.buildSnapshot()
	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()
	return snap
}

// interruptOnDeath unwinds the stack into Dead when the agent has died.
func (a *Agent) interruptOnDeath() {
	local, ok := a.cache.Local()
	if !ok || !local.Dead() {
		return
	}
	if _, dead := a.stack.Top().(*states.Dead); dead {
		return
	}
	a.stack.Clear(a.bctx, "death")
	a.stack.Push(a.bctx, states.NewDead())
}

// Snapshot returns the state published by the last Tick.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

func (a *Agent) Cache() *entity.Cache {
	return a.cache
}

func (a *Agent) View(name string) (*view.View, bool) {
	v, ok := a.views[name]
	return v, ok
}

func (a *Agent) Stack() *behavior.Stack {
	return a.stack
}

func (a *Agent) Locations() *locations.Store {
	return a.store
}

// Close detaches subscribers and writes dirty locations.
func (a *Agent) Close(ctx context.Context) error {
	a.recorder.Close()
	for _, name := range slices.Backward(a.viewOrder) {
		a.views[name].Close()
	}
	return a.store.Flush(ctx)
}
