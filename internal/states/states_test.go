package states

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/simenv"
	behaviorlog "mine-and-die/agent/logging/behavior"
)

func TestGatherCompletesWhenTargetVanishesAndParentResumes(t *testing.T) {
	h := newHarness(t)
	h.world.AddUnit(2, env.KindPlayer, "Stranger", geom.Vec3{X: 30}, env.UnitInfo{Health: 100, HealthMax: 100, Reaction: env.ReactionNeutral})
	h.world.AddUnit(3, env.KindUnit, "Corpse", geom.Vec3{X: -30}, env.UnitInfo{Dead: true})
	h.world.AddObject(4, "Peacebloom", geom.Vec3{Y: 30}, env.ResourceHerb)
	h.pulse()

	require.Equal(t, []env.EntityID{1, 2, 3, 4}, h.cache.IDs())
	assert.Equal(t, 1, h.ctx.Harvest.Len())
	assert.True(t, h.ctx.Harvest.Contains(4))

	gather := NewGather(h.cfg, 4)
	h.ctx.Push(gather)
	require.Same(t, gather, h.ctx.Stack.Top())

	h.world.Remove(4)
	h.pulse()
	assert.False(t, h.ctx.Harvest.Contains(4))
	assert.True(t, gather.Complete(h.ctx))

	h.ctx.Stack.Run(h.ctx)
	assert.Same(t, h.root, h.ctx.Stack.Top())
	assert.Len(t, h.events.OfType(behaviorlog.EventStatePopped), 1)
}

func TestGatherHarvestsNode(t *testing.T) {
	h := newHarness(t)
	h.world.AddObject(4, "Copper Vein", geom.Vec3{X: 20}, env.ResourceOre)

	h.runUntil(5, h.topIs("Gather(4)"))
	h.runUntil(100, func() bool { return slices.Contains(h.world.Interactions(), 4) })
	assert.True(t, h.bans.Contains(4), "interacted nodes are blacklisted")

	local, _ := h.cache.Local()
	assert.LessOrEqual(t, geom.Distance(local.Position, geom.Vec3{X: 20}), h.cfg.InteractRange+1)

	h.runUntil(40, h.topIs("Root"))
	_, exists := h.world.Body(4)
	assert.False(t, exists, "the cast despawned the node")
	assert.Equal(t, []env.EntityID{4}, h.world.Interactions())
}

func TestGatherAbortsWhenCombatStarts(t *testing.T) {
	h := newHarness(t)
	h.world.AddObject(4, "Peacebloom", geom.Vec3{X: 40}, env.ResourceHerb)
	h.runUntil(5, h.topIs("Gather(4)"))

	h.world.UpdateUnit(1, func(u *env.UnitInfo) { u.InCombat = true })
	h.runUntil(2, h.topIs("Root"))
}

func TestGatherSkipsNodeInUseByOthers(t *testing.T) {
	h := newHarness(t)
	h.world.AddObject(4, "Peacebloom", geom.Vec3{X: 10}, env.ResourceHerb)
	h.pulse()
	h.world.UpdateObject(4, func(o *env.ObjectInfo) { o.InUse = true })
	h.pulse()

	gather := NewGather(h.cfg, 4)
	h.ctx.Push(gather)
	h.ctx.Stack.Run(h.ctx)
	assert.True(t, gather.Complete(h.ctx))
	assert.True(t, h.bans.Contains(4))
	assert.Empty(t, h.world.Interactions())
}

func TestKillThenLootCorpse(t *testing.T) {
	h := newHarness(t, withHunting())
	h.world.AddUnit(5, env.KindUnit, "Wolf", geom.Vec3{X: 10}, env.UnitInfo{Health: 100, HealthMax: 100, Reaction: env.ReactionHostile})

	h.runUntil(5, h.topIs("Kill(5)"))
	h.runUntil(300, func() bool {
		b, _ := h.world.Body(5)
		return b.Unit.Dead
	})
	kills := 0
	for _, id := range h.world.Interactions() {
		if id == 5 {
			kills++
		}
	}
	assert.Equal(t, 3, kills, "35 damage per hit")

	h.runUntil(50, func() bool {
		b, _ := h.world.Body(5)
		return !b.Unit.Lootable
	})
	assert.Equal(t, 4, len(h.world.Interactions()))
	h.runUntil(20, h.topIs("Root"))
}

func TestKillTimesOutAndBlacklists(t *testing.T) {
	h := newHarness(t)
	h.cfg.KillTimeout = step * 5
	h.world.AddUnit(5, env.KindUnit, "Wolf", geom.Vec3{X: 3}, env.UnitInfo{Health: 1e6, HealthMax: 1e6, Reaction: env.ReactionHostile})
	h.pulse()

	kill := NewKill(h.cfg, 5)
	h.ctx.Push(kill)
	h.runUntil(20, func() bool { return h.ctx.Stack.Top() != kill })
	assert.True(t, h.bans.Contains(5))
	assert.Len(t, h.events.OfType(behaviorlog.EventStateTimedOut), 1)
}

func TestSearchSkipsUnreachableLocations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.world.AddUnreachable(simenv.Box{Min: geom.Vec3{X: 40, Y: -5, Z: -5}, Max: geom.Vec3{X: 60, Y: 5, Z: 5}})
	_, err := h.ctx.Locations.Add(ctx, 1, locations.Location{Kind: locations.KindHerb, Position: geom.Vec3{X: 50}})
	require.NoError(t, err)
	_, err = h.ctx.Locations.Add(ctx, 1, locations.Location{Kind: locations.KindHerb, Position: geom.Vec3{Y: 15}})
	require.NoError(t, err)
	h.pulse()

	search := NewSearch(h.cfg)
	candidates := search.Candidates(h.ctx)
	require.Len(t, candidates, 1)
	assert.Equal(t, geom.Vec3{Y: 15}, candidates[0].Position)

	h.runUntil(3, h.topIs("Search(herb 0,15)"))
}

func TestSearchRerollsAfterArrivingAndCompletesWhenExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, y := range []float64{10, -10} {
		_, err := h.ctx.Locations.Add(ctx, 1, locations.Location{Kind: locations.KindOre, Position: geom.Vec3{Y: y}})
		require.NoError(t, err)
	}

	h.runUntil(3, func() bool {
		_, ok := h.root.search.Destination()
		return ok
	})
	first, _ := h.root.search.Destination()
	h.runUntil(100, func() bool {
		dest, ok := h.root.search.Destination()
		return ok && dest.Position != first.Position
	})
	h.runUntil(100, h.topIs("Root"))
	assert.Empty(t, h.root.search.Candidates(h.ctx), "both locations are on cooldown")
}

func TestSearchYieldsToPlannedTask(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctx.Locations.Add(context.Background(), 1, locations.Location{Kind: locations.KindHerb, Position: geom.Vec3{X: 80}})
	require.NoError(t, err)
	h.runUntil(3, h.topIs("Search(herb 80,0)"))

	h.world.AddObject(9, "Peacebloom", geom.Vec3{X: 10}, env.ResourceHerb)
	h.runUntil(30, h.topIs("Gather(9)"))
}

func TestRootDropsStaleTasks(t *testing.T) {
	h := newHarness(t)
	h.world.AddObject(4, "Peacebloom", geom.Vec3{X: 10}, env.ResourceHerb)
	h.pulse()
	h.ctx.Planner.Recompute(h.ctx.ScoringContext(0))
	h.world.Remove(4)
	h.pulse()

	h.ctx.Stack.Run(h.ctx)
	assert.Equal(t, 1, h.ctx.Stack.Len())
	_, pending := h.ctx.Planner.NextTask()
	assert.False(t, pending, "the stale task was consumed")
}

func TestDeadIdlesUntilAlive(t *testing.T) {
	h := newHarness(t)
	h.world.UpdateUnit(1, func(u *env.UnitInfo) { u.Dead = true })
	h.pulse()

	h.ctx.Push(NewDead())
	h.ctx.Stack.Run(h.ctx)
	h.ctx.Stack.Run(h.ctx)
	assert.Equal(t, "Dead", h.ctx.Stack.Top().String())

	h.world.UpdateUnit(1, func(u *env.UnitInfo) { u.Dead = false })
	h.pulse()
	h.ctx.Stack.Run(h.ctx)
	assert.Same(t, h.root, h.ctx.Stack.Top())
}

func TestApproachReissuesMoveOnlyWhenDestinationDrifts(t *testing.T) {
	h := newHarness(t)
	h.pulse()
	var a approach
	target := geom.Vec3{X: 50}

	arrived, err := a.step(h.ctx, h.cfg, target, 2)
	require.NoError(t, err)
	assert.False(t, arrived)
	_, err = a.step(h.ctx, h.cfg, target.Add(geom.Vec3{X: 0.5}), 2)
	require.NoError(t, err)
	assert.Len(t, h.world.Moves(), 1)

	_, err = a.step(h.ctx, h.cfg, target.Add(geom.Vec3{X: 5}), 2)
	require.NoError(t, err)
	assert.Len(t, h.world.Moves(), 2)

	for i := 0; i < h.cfg.StallTicks; i++ {
		_, _ = a.step(h.ctx, h.cfg, target.Add(geom.Vec3{X: 5}), 2)
	}
	assert.True(t, a.stalled(h.cfg.StallTicks), "no movement without world advance")
}

// objectLocal reports the local agent as a game object.
type objectLocal struct {
	*simenv.World
}

func (o objectLocal) Kind(id env.EntityID) env.Kind {
	if id == o.LocalPlayerID() {
		return env.KindGameObject
	}
	return o.World.Kind(id)
}

func TestGatherToleratesNonUnitLocal(t *testing.T) {
	world := simenv.New(simenv.Options{MapID: 1}, 1, geom.Vec3{})
	world.AddObject(4, "Peacebloom", geom.Vec3{X: 1}, env.ResourceHerb)
	clock := env.NewManualClock(0)
	cache, err := entity.NewCache(entity.Config{}, entity.Deps{Percepts: objectLocal{world}, Clock: clock})
	require.NoError(t, err)
	cache.Pulse()
	local, ok := cache.Local()
	require.True(t, ok)
	require.False(t, local.IsUnit())

	cfg := DefaultConfig()
	ctx := &behavior.Context{Cache: cache, Actuator: world, Navigator: world, Clock: clock}
	ctx.Stack = behavior.NewStack(NewRoot(&cfg), nil, nil)
	gather := NewGather(&cfg, 4)
	ctx.Push(gather)

	require.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			clock.Advance(step)
			cache.Pulse()
			ctx.Stack.Run(ctx)
		}
	})
	assert.False(t, ctx.Casting())
	assert.Equal(t, []env.EntityID{4}, world.Interactions())
}
