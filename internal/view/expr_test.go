package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

func TestCompileExprBuildsWorkingView(t *testing.T) {
	world, cache := newCache(t)
	pred, err := CompileExpr(cache, "Hostile && !Dead && Distance < 20", "Herb && !InUse")
	require.NoError(t, err)
	v := New("expr", cache, pred, nil)

	world.AddUnit(2, env.KindUnit, "Near", geom.Vec3{X: 10}, env.UnitInfo{Health: 5, HealthMax: 10, Reaction: env.ReactionHostile})
	world.AddUnit(3, env.KindUnit, "Far", geom.Vec3{X: 50}, env.UnitInfo{Health: 5, HealthMax: 10, Reaction: env.ReactionHostile})
	world.AddUnit(4, env.KindUnit, "Friend", geom.Vec3{X: 5}, env.UnitInfo{Reaction: env.ReactionFriendly})
	world.AddObject(5, "Peacebloom", geom.Vec3{X: 1}, env.ResourceHerb)
	world.AddObject(6, "Copper", geom.Vec3{X: 1}, env.ResourceOre)
	cache.Pulse()

	assert.ElementsMatch(t, []env.EntityID{2, 5}, func() []env.EntityID {
		var ids []env.EntityID
		for _, e := range v.Sorted() {
			ids = append(ids, e.ID)
		}
		return ids
	}())
	assert.NoError(t, pred.LastError())
}

func TestCompileExprRejectsInvalidSource(t *testing.T) {
	_, cache := newCache(t)
	_, err := CompileExpr(cache, "Hostile &&", "")
	assert.Error(t, err)
	_, err = CompileExpr(cache, "", "Name")
	assert.Error(t, err, "non-boolean expressions are rejected at compile time")
}

func TestEmptyExprRejectsFamily(t *testing.T) {
	world, cache := newCache(t)
	pred, err := CompileExpr(cache, "", "true")
	require.NoError(t, err)
	world.AddUnit(2, env.KindUnit, "Any", geom.Vec3{X: 1}, env.UnitInfo{})
	cache.Pulse()
	unit, ok := cache.Get(2)
	require.True(t, ok)
	assert.False(t, pred.FilterUnit(unit))
}
