// Package env declares the capabilities the agent core consumes from the host
// environment binding. Implementations live outside the core; simenv provides
// an in-memory one.
package env

import (
	"time"

	"mine-and-die/agent/internal/geom"
)

// EntityID is the opaque, stable identifier the host assigns to an entity.
type EntityID uint64

// Kind tags the entity families the cache tracks.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnit
	KindPlayer
	KindGameObject
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindPlayer:
		return "player"
	case KindGameObject:
		return "object"
	default:
		return "unknown"
	}
}

// Reaction mirrors the host's standing scale between two units.
type Reaction int

const (
	ReactionHated      Reaction = 1
	ReactionHostile    Reaction = 2
	ReactionUnfriendly Reaction = 3
	ReactionNeutral    Reaction = 4
	ReactionFriendly   Reaction = 5
)

// Hostile reports whether the standing permits unprovoked attacks.
func (r Reaction) Hostile() bool {
	return r > 0 && r <= ReactionUnfriendly
}

// Friendly reports whether the standing is friendly or better.
func (r Reaction) Friendly() bool {
	return r >= ReactionFriendly
}

// UnitInfo is the per-tick snapshot of a unit or player.
type UnitInfo struct {
	Health           float64
	HealthMax        float64
	Reaction         Reaction
	Dead             bool
	TargetID         EntityID
	Casting          bool
	Channeling       bool
	InCombat         bool
	Lootable         bool
	ObjectiveCarrier bool
}

// ResourceFlags describes what can be harvested from a game object.
type ResourceFlags uint8

const (
	ResourceHerb ResourceFlags = 1 << iota
	ResourceOre
	ResourceTreasure
)

// Has reports whether every bit in mask is set.
func (f ResourceFlags) Has(mask ResourceFlags) bool {
	return mask != 0 && f&mask == mask
}

// ObjectInfo is the per-tick snapshot of a game object.
type ObjectInfo struct {
	Resources ResourceFlags
	InUse     bool
}

// Percepts queries entity state from the host.
type Percepts interface {
	LocalPlayerID() EntityID
	MapID() uint32
	NearbyEntityIDs(radius float64) []EntityID
	Exists(id EntityID) bool
	Kind(id EntityID) Kind
	Name(id EntityID) string
	Position(id EntityID) geom.Vec3
	UnitInfo(id EntityID) (UnitInfo, error)
	ObjectInfo(id EntityID) (ObjectInfo, error)
}

// MoveOptions tunes a MoveTo request.
type MoveOptions struct {
	Tolerance float64
	Mounted   bool
}

// Actuator issues actions. Calls must return immediately; progress is
// observed on later ticks.
type Actuator interface {
	Interact(id EntityID) error
	MoveTo(pos geom.Vec3, opts MoveOptions) error
	StopMovement()
}

// RaycastFlags selects the geometry a raycast collides with.
type RaycastFlags uint32

const (
	RaycastTerrain RaycastFlags = 1 << iota
	RaycastStatic
	RaycastDoodads

	RaycastLineOfSight = RaycastTerrain | RaycastStatic | RaycastDoodads
)

// LineOfSight tests segment visibility. Raycast reports true when the
// segment from a to b is obstructed.
type LineOfSight interface {
	Raycast(a, b geom.Vec3, flags RaycastFlags) bool
}

// Navigator answers reachability queries.
type Navigator interface {
	PathExists(from, to geom.Vec3) bool
}

// Host bundles every capability a full binding provides.
type Host interface {
	Percepts
	Actuator
	LineOfSight
	Navigator
}

// Blacklist is a time-boxed exclusion list for targets.
type Blacklist interface {
	Add(id EntityID, d time.Duration)
	Contains(id EntityID) bool
}
