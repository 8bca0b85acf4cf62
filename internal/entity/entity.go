package entity

import (
	"time"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

// Entity is the cache-owned record for one observed environment object. The
// kind tag decides which of Unit or Object is populated: Unit for KindUnit
// and KindPlayer, Object for KindGameObject. Readers outside the cache must
// treat records as read-only.
type Entity struct {
	ID       env.EntityID
	Kind     env.Kind
	Name     string
	Position geom.Vec3

	Unit   *UnitState
	Object *ObjectState

	FirstSeen   time.Duration
	LastUpdated time.Duration
}

// UnitState holds the unit/player specific attributes.
type UnitState struct {
	env.UnitInfo
	InLineOfSight bool
}

// ObjectState holds the game object specific attributes.
type ObjectState struct {
	env.ObjectInfo
}

// IsUnit reports whether the entity carries unit attributes (units and players).
func (e *Entity) IsUnit() bool {
	return e != nil && e.Unit != nil && (e.Kind == env.KindUnit || e.Kind == env.KindPlayer)
}

// IsObject reports whether the entity is a game object.
func (e *Entity) IsObject() bool {
	return e != nil && e.Object != nil && e.Kind == env.KindGameObject
}

// Dead reports the dead flag; non-units are never dead.
func (e *Entity) Dead() bool {
	return e.IsUnit() && e.Unit.Dead
}

// HealthFraction returns health/health-max clamped to [0, 1]. Units with no
// known maximum report 1.
func (e *Entity) HealthFraction() float64 {
	if !e.IsUnit() || e.Unit.HealthMax <= 0 {
		return 1
	}
	return geom.Clamp(e.Unit.Health/e.Unit.HealthMax, 0, 1)
}

// Hostile reports whether the unit's reaction towards the agent is hostile.
func (e *Entity) Hostile() bool {
	return e.IsUnit() && e.Unit.Reaction.Hostile()
}

// Friendly reports whether the unit's reaction towards the agent is friendly.
func (e *Entity) Friendly() bool {
	return e.IsUnit() && e.Unit.Reaction.Friendly()
}

// Harvestable reports whether the object offers any resource in mask.
func (e *Entity) Harvestable(mask env.ResourceFlags) bool {
	return e.IsObject() && e.Object.Resources&mask != 0
}

// Lootable reports whether the entity is a corpse with loot.
func (e *Entity) Lootable() bool {
	return e.IsUnit() && e.Unit.Dead && e.Unit.Lootable
}

// DistanceTo returns the distance between two entities.
func (e *Entity) DistanceTo(other *Entity) float64 {
	return geom.Distance(e.Position, other.Position)
}
