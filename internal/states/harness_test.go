package states

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/blacklist"
	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/scoring"
	"mine-and-die/agent/internal/simenv"
	"mine-and-die/agent/internal/view"
	"mine-and-die/agent/logging"
	"mine-and-die/agent/logging/sinks"
)

const step = 100 * time.Millisecond

type harness struct {
	t       *testing.T
	world   *simenv.World
	clock   *env.ManualClock
	cache   *entity.Cache
	ctx     *behavior.Context
	cfg     *Config
	root    *Root
	events  *sinks.MemorySink
	bans    *blacklist.List
	planner scoring.PlannerConfig
}

type harnessOption func(*harness)

func withHunting() harnessOption {
	return func(h *harness) { h.planner.HuntWhenIdle = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := DefaultConfig()
	h := &harness{
		t:       t,
		world:   simenv.New(simenv.Options{MapID: 1}, 1, geom.Vec3{}),
		clock:   env.NewManualClock(0),
		cfg:     &cfg,
		events:  sinks.NewMemorySink(),
		planner: scoring.DefaultPlannerConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	pub := logging.SinkPublisher(h.events)
	cache, err := entity.NewCache(entity.Config{}, entity.Deps{Percepts: h.world, LineOfSight: h.world, Clock: h.clock, Publisher: pub})
	require.NoError(t, err)
	h.cache = cache
	h.bans = blacklist.New(h.clock)

	harvest := view.New("harvest", cache, view.Harvestable(env.ResourceHerb|env.ResourceOre), nil)
	loot := view.New("loot", cache, view.Lootable(), nil)
	hostiles := view.New("hostiles", cache, view.HostileUnits(), nil)
	scorer := scoring.NewUnitScorer(scoring.Config{Interval: -1}, hostiles, cache, pub, nil)
	planner := scoring.NewPlanner(h.planner, harvest, loot, scorer, pub, nil)

	h.ctx = &behavior.Context{
		Cache:     cache,
		Actuator:  h.world,
		Navigator: h.world,
		Clock:     h.clock,
		Blacklist: h.bans,
		Scorer:    scorer,
		Planner:   planner,
		Locations: locations.NewStore(locations.Config{}, nil, pub, nil),
		Harvest:   harvest,
		Loot:      loot,
		Hostiles:  hostiles,
		Publisher: pub,
	}
	h.root = NewRoot(h.cfg)
	h.ctx.Stack = behavior.NewStack(h.root, pub, nil)
	return h
}

// tick advances the world and runs one agent tick.
func (h *harness) tick() {
	h.world.Advance(step)
	h.clock.Advance(step)
	h.cache.Pulse()
	h.ctx.Harvest.ProcessChanges()
	h.ctx.Loot.ProcessChanges()
	h.ctx.Hostiles.ProcessChanges()
	sc := h.ctx.ScoringContext(scoring.RoleDamage)
	h.ctx.Scorer.Update(h.clock.Now(), sc)
	h.ctx.Planner.Update(h.clock.Now(), sc)
	h.ctx.Stack.Run(h.ctx)
}

// runUntil ticks until cond holds, failing after limit ticks.
func (h *harness) runUntil(limit int, cond func() bool) int {
	h.t.Helper()
	for i := 1; i <= limit; i++ {
		h.tick()
		if cond() {
			return i
		}
	}
	h.t.Fatalf("condition not met after %d ticks; stack %v", limit, h.ctx.Stack.Strings())
	return 0
}

func (h *harness) pulse() {
	h.cache.Pulse()
	h.ctx.Harvest.ProcessChanges()
	h.ctx.Loot.ProcessChanges()
	h.ctx.Hostiles.ProcessChanges()
}

func (h *harness) topIs(name string) func() bool {
	return func() bool { return h.ctx.Stack.Top().String() == name }
}
