package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/simenv"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	cachelog "mine-and-die/agent/logging/cache"
	"mine-and-die/agent/logging/sinks"
)

const localID env.EntityID = 1

type fixture struct {
	world   *simenv.World
	clock   *env.ManualClock
	cache   *Cache
	sink    *sinks.MemorySink
	metrics *telemetry.Counters
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	world := simenv.New(simenv.Options{}, localID, geom.Vec3{})
	clock := env.NewManualClock(0)
	sink := sinks.NewMemorySink()
	metrics := telemetry.NewCounters()
	cache, err := NewCache(Config{ScanRadius: 100, LineOfSightRange: 50, EyeHeight: 2}, Deps{
		Percepts:    world,
		LineOfSight: world,
		Clock:       clock,
		Publisher:   logging.SinkPublisher(sink),
		Metrics:     metrics,
	})
	require.NoError(t, err)
	return &fixture{world: world, clock: clock, cache: cache, sink: sink, metrics: metrics}
}

func hostile() env.UnitInfo {
	return env.UnitInfo{Health: 100, HealthMax: 100, Reaction: env.ReactionHostile}
}

func TestNewCacheRequiresDeps(t *testing.T) {
	_, err := NewCache(Config{}, Deps{})
	assert.Error(t, err)
	_, err = NewCache(Config{}, Deps{Percepts: simenv.New(simenv.Options{}, 1, geom.Vec3{})})
	assert.Error(t, err)
}

func TestPulseReconcilesTrackedSet(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindPlayer, "Alice", geom.Vec3{X: 5}, env.UnitInfo{Health: 50, HealthMax: 100, Reaction: env.ReactionFriendly})
	f.world.AddUnit(11, env.KindUnit, "Wolf", geom.Vec3{X: 8}, hostile())
	f.world.AddObject(12, "Peacebloom", geom.Vec3{Y: 4}, env.ResourceHerb)

	report := f.cache.Pulse()
	assert.Equal(t, 4, report.Added, "local plus three observed")
	assert.Equal(t, []env.EntityID{1, 10, 11, 12}, f.cache.IDs())

	before := f.cache.IDs()
	f.world.Remove(11)
	f.world.AddObject(13, "Silverleaf", geom.Vec3{Y: -4}, env.ResourceHerb)

	report = f.cache.Pulse()
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Removed)

	want := map[env.EntityID]bool{}
	for _, id := range before {
		want[id] = true
	}
	want[13] = true
	delete(want, 11)
	got := map[env.EntityID]bool{}
	for _, id := range f.cache.IDs() {
		got[id] = true
	}
	assert.Equal(t, want, got)

	_, err := f.cache.Lookup(11)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(4), f.metrics.Load(telemetry.MetricEntitiesTracked))
}

func TestPulseKeepsOutOfRangeEntitiesWhileTheyExist(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindUnit, "Kobold", geom.Vec3{X: 20}, hostile())
	f.cache.Pulse()

	f.world.Teleport(10, geom.Vec3{X: 500})
	f.cache.Pulse()

	kobold, ok := f.cache.Get(10)
	require.True(t, ok)
	assert.InDelta(t, 500, kobold.Position.X, 1e-9)
}

func TestPulseSkipsUnresolvableNames(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindUnit, "", geom.Vec3{X: 1}, hostile())
	f.cache.Pulse()
	assert.False(t, f.cache.Contains(10))

	f.world.Remove(10)
	f.world.AddUnit(10, env.KindUnit, "Named Later", geom.Vec3{X: 1}, hostile())
	f.cache.Pulse()
	assert.True(t, f.cache.Contains(10))
}

func TestPulseUpdatesAttributes(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindUnit, "Boar", geom.Vec3{X: 10}, hostile())
	f.cache.Pulse()

	f.clock.Advance(time.Second)
	f.world.UpdateUnit(10, func(info *env.UnitInfo) {
		info.Health = 0
		info.Dead = true
		info.Lootable = true
	})
	f.cache.Pulse()

	boar, ok := f.cache.Get(10)
	require.True(t, ok)
	assert.True(t, boar.Dead())
	assert.True(t, boar.Lootable())
	assert.Equal(t, 0.0, boar.HealthFraction())
	assert.Equal(t, time.Second, boar.LastUpdated)
	assert.Equal(t, time.Duration(0), boar.FirstSeen)
}

func TestPulseComputesLineOfSight(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindUnit, "Visible", geom.Vec3{X: 10, Y: 10}, hostile())
	f.world.AddUnit(11, env.KindUnit, "Behind Wall", geom.Vec3{X: 10}, hostile())
	f.world.AddUnit(12, env.KindUnit, "Too Far", geom.Vec3{X: 80}, hostile())
	f.world.AddWall(simenv.Box{Min: geom.Vec3{X: 4, Y: -1, Z: -5}, Max: geom.Vec3{X: 5, Y: 1, Z: 10}})

	f.cache.Pulse()

	visible, _ := f.cache.Get(10)
	walled, _ := f.cache.Get(11)
	far, _ := f.cache.Get(12)
	assert.True(t, visible.Unit.InLineOfSight)
	assert.False(t, walled.Unit.InLineOfSight)
	assert.False(t, far.Unit.InLineOfSight)
}

func TestPulseIsolatesPerEntityFailures(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(10, env.KindUnit, "Flaky", geom.Vec3{X: 1}, hostile())
	f.world.AddUnit(11, env.KindUnit, "Panicky", geom.Vec3{X: 2}, hostile())
	f.world.AddUnit(12, env.KindUnit, "Healthy", geom.Vec3{X: 3}, hostile())
	f.cache.Pulse()

	f.world.FailUnitInfo(10, errors.New("binding fault"))
	f.world.PanicOnPosition(11, true)
	f.world.UpdateUnit(12, func(info *env.UnitInfo) { info.Health = 40 })

	var report PulseReport
	require.NotPanics(t, func() { report = f.cache.Pulse() })
	assert.Equal(t, 2, report.Failed)

	healthy, _ := f.cache.Get(12)
	assert.Equal(t, 40.0, healthy.Unit.Health)
	assert.True(t, f.cache.Contains(10), "failed updates keep the record")
	assert.True(t, f.cache.Contains(11))
	assert.Len(t, f.sink.OfType(cachelog.EventEntityUpdateFailed), 2)

	f.world.FailUnitInfo(10, nil)
	f.world.PanicOnPosition(11, false)
	f.world.Remove(11)
	report = f.cache.Pulse()
	assert.Equal(t, 0, report.Failed)
	assert.False(t, f.cache.Contains(11))
}

func TestPulseSurvivesPanickingSubscriber(t *testing.T) {
	f := newFixture(t)
	for _, id := range []env.EntityID{10, 11, 12} {
		f.world.AddUnit(id, env.KindUnit, "Wolf", geom.Vec3{X: float64(id - 9)}, hostile())
	}
	f.cache.Pulse()

	f.cache.Subscribe(func(e Event) {
		if e.Type == EventCreated && e.Entity.ID == 20 {
			panic("predicate blew up")
		}
	})
	var created []env.EntityID
	f.cache.Subscribe(func(e Event) {
		if e.Type == EventCreated {
			created = append(created, e.Entity.ID)
		}
	})

	f.world.Remove(12)
	f.world.AddUnit(20, env.KindUnit, "Kobold", geom.Vec3{Y: 5}, hostile())
	f.world.AddUnit(21, env.KindUnit, "Kobold", geom.Vec3{Y: 6}, hostile())

	var report PulseReport
	require.NotPanics(t, func() { report = f.cache.Pulse() })
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Removed)
	assert.True(t, f.cache.Contains(20))
	assert.True(t, f.cache.Contains(21))
	assert.False(t, f.cache.Contains(12))
	assert.Equal(t, []env.EntityID{20, 21}, created, "later subscribers still see the event")
	assert.Len(t, f.sink.OfType(cachelog.EventEntityUpdateFailed), 1)
}

func TestPulseRefreshesLocalFirst(t *testing.T) {
	f := newFixture(t)
	f.cache.Pulse()
	local, ok := f.cache.Local()
	require.True(t, ok)
	assert.Equal(t, localID, local.ID)

	f.world.Teleport(localID, geom.Vec3{X: 3})
	var seenLocal geom.Vec3
	f.cache.Subscribe(func(e Event) {
		l, _ := f.cache.Local()
		seenLocal = l.Position
	}, env.KindGameObject)
	f.world.AddObject(20, "Tin Vein", geom.Vec3{X: 4}, env.ResourceOre)
	f.cache.Pulse()
	assert.InDelta(t, 3, seenLocal.X, 1e-9)

	f.world.Remove(localID)
	f.cache.Pulse()
	_, ok = f.cache.Local()
	assert.False(t, ok)
	assert.NotEmpty(t, f.sink.OfType(cachelog.EventLocalAgentMissing))
}

func TestSubscribersReceiveKindScopedEventsInOrder(t *testing.T) {
	f := newFixture(t)
	var order []string
	f.cache.Subscribe(func(e Event) { order = append(order, "all") })
	cancelUnits := f.cache.Subscribe(func(e Event) { order = append(order, "unit") }, env.KindUnit)
	f.cache.Subscribe(func(e Event) {
		if e.Type == EventRemoved {
			_, stillTracked := f.cache.Get(e.Entity.ID)
			order = append(order, "removed-tracked=")
			if stillTracked {
				order[len(order)-1] += "yes"
			}
		}
	}, env.KindUnit)

	f.cache.Pulse() // local player creation
	f.world.AddUnit(10, env.KindUnit, "Murloc", geom.Vec3{X: 1}, hostile())
	f.cache.Pulse()
	assert.Equal(t, []string{"all", "all", "unit"}, order)

	order = nil
	cancelUnits()
	f.world.Remove(10)
	f.cache.Pulse()
	assert.Equal(t, []string{"all", "removed-tracked=yes"}, order)
}

func TestSortedFiltersKinds(t *testing.T) {
	f := newFixture(t)
	f.world.AddUnit(30, env.KindUnit, "Unit", geom.Vec3{X: 1}, hostile())
	f.world.AddObject(20, "Object", geom.Vec3{X: 2}, env.ResourceHerb)
	f.cache.Pulse()

	objects := f.cache.Sorted(env.KindGameObject)
	require.Len(t, objects, 1)
	assert.Equal(t, env.EntityID(20), objects[0].ID)
	assert.Len(t, f.cache.Units(), 2)
	assert.Len(t, f.cache.Objects(), 1)
	assert.Len(t, f.cache.Sorted(), 3)
}
