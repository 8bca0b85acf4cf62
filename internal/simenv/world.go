// Package simenv is a deterministic in-memory host environment. It backs the
// demo binary and the tests of every package that needs a world to perceive
// and act on.
package simenv

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

var (
	ErrUnknownEntity = errors.New("simenv: unknown entity")
	ErrOutOfRange    = errors.New("simenv: target out of range")
	ErrBusy          = errors.New("simenv: agent is casting")
)

const (
	DefaultRunSpeed      = 7.0
	DefaultInteractRange = 5.0
	DefaultGatherTime    = 1500 * time.Millisecond
	DefaultAttackDamage  = 35.0
)

// Body is one simulated entity.
type Body struct {
	ID       env.EntityID
	Kind     env.Kind
	Name     string
	Position geom.Vec3
	Unit     env.UnitInfo
	Object   env.ObjectInfo
}

// Box is an axis-aligned obstruction.
type Box struct {
	Min geom.Vec3
	Max geom.Vec3
}

func (b Box) contains(p geom.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Options tunes the simulated agent.
type Options struct {
	MapID         uint32
	RunSpeed      float64
	InteractRange float64
	GatherTime    time.Duration
	AttackDamage  float64
}

func (o Options) withDefaults() Options {
	if o.RunSpeed <= 0 {
		o.RunSpeed = DefaultRunSpeed
	}
	if o.InteractRange <= 0 {
		o.InteractRange = DefaultInteractRange
	}
	if o.GatherTime <= 0 {
		o.GatherTime = DefaultGatherTime
	}
	if o.AttackDamage <= 0 {
		o.AttackDamage = DefaultAttackDamage
	}
	return o
}

// World implements env.Host.
type World struct {
	mu   sync.Mutex
	opts Options

	bodies  map[env.EntityID]*Body
	localID env.EntityID

	walls       []Box
	unreachable []Box

	destination *geom.Vec3
	cast        *cast

	interactions []env.EntityID
	moves        []geom.Vec3

	unitErrors map[env.EntityID]error
	panics     map[env.EntityID]bool
}

type cast struct {
	target    env.EntityID
	remaining time.Duration
}

var _ env.Host = (*World)(nil)

// New creates a world whose local agent is a living player at spawn.
func New(opts Options, localID env.EntityID, spawn geom.Vec3) *World {
	w := &World{
		opts:       opts.withDefaults(),
		bodies:     make(map[env.EntityID]*Body),
		localID:    localID,
		unitErrors: make(map[env.EntityID]error),
		panics:     make(map[env.EntityID]bool),
	}
	w.bodies[localID] = &Body{
		ID:       localID,
		Kind:     env.KindPlayer,
		Name:     "Agent",
		Position: spawn,
		Unit:     env.UnitInfo{Health: 100, HealthMax: 100, Reaction: env.ReactionFriendly},
	}
	return w
}

// AddUnit places a unit or player.
func (w *World) AddUnit(id env.EntityID, kind env.Kind, name string, pos geom.Vec3, info env.UnitInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies[id] = &Body{ID: id, Kind: kind, Name: name, Position: pos, Unit: info}
}

// AddObject places a game object.
func (w *World) AddObject(id env.EntityID, name string, pos geom.Vec3, resources env.ResourceFlags) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies[id] = &Body{ID: id, Kind: env.KindGameObject, Name: name, Position: pos, Object: env.ObjectInfo{Resources: resources}}
}

// Remove despawns id.
func (w *World) Remove(id env.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
}

// UpdateUnit mutates the unit attributes of id.
func (w *World) UpdateUnit(id env.EntityID, fn func(*env.UnitInfo)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[id]; ok {
		fn(&b.Unit)
	}
}

// UpdateObject mutates the object attributes of id.
func (w *World) UpdateObject(id env.EntityID, fn func(*env.ObjectInfo)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[id]; ok {
		fn(&b.Object)
	}
}

// Teleport moves id instantly.
func (w *World) Teleport(id env.EntityID, pos geom.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[id]; ok {
		b.Position = pos
	}
}

// AddWall adds a line-of-sight obstruction.
func (w *World) AddWall(box Box) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.walls = append(w.walls, box)
}

// AddUnreachable marks a region no path can end in.
func (w *World) AddUnreachable(box Box) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unreachable = append(w.unreachable, box)
}

// FailUnitInfo makes UnitInfo for id return err; nil clears it.
func (w *World) FailUnitInfo(id env.EntityID, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.unitErrors, id)
		return
	}
	w.unitErrors[id] = err
}

// PanicOnPosition makes Position for id panic, simulating a faulty binding.
func (w *World) PanicOnPosition(id env.EntityID, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.panics[id] = enabled
}

// Interactions returns every successful Interact target in order.
func (w *World) Interactions() []env.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.interactions)
}

// Moves returns every MoveTo destination in order.
func (w *World) Moves() []geom.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.moves)
}

// Body returns a copy of the body for id.
func (w *World) Body(id env.EntityID) (Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Advance steps movement and casts forward by dt.
func (w *World) Advance(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	local, ok := w.bodies[w.localID]
	if !ok || dt <= 0 {
		return
	}
	if w.destination != nil && !local.Unit.Dead && w.cast == nil {
		step := w.opts.RunSpeed * dt.Seconds()
		local.Position = geom.MoveTowards(local.Position, *w.destination, step)
		if local.Position == *w.destination {
			w.destination = nil
		}
	}
	if w.cast != nil {
		w.cast.remaining -= dt
		if w.cast.remaining <= 0 {
			delete(w.bodies, w.cast.target)
			w.cast = nil
			local.Unit.Casting = false
		}
	}
}

func (w *World) LocalPlayerID() env.EntityID {
	return w.localID
}

func (w *World) MapID() uint32 {
	return w.opts.MapID
}

func (w *World) NearbyEntityIDs(radius float64) []env.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	local, ok := w.bodies[w.localID]
	ids := make([]env.EntityID, 0, len(w.bodies))
	for id, b := range w.bodies {
		if ok && !geom.Within(local.Position, b.Position, radius) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (w *World) Exists(id env.EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.bodies[id]
	return ok
}

func (w *World) Kind(id env.EntityID) env.Kind {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[id]; ok {
		return b.Kind
	}
	return env.KindUnknown
}

func (w *World) Name(id env.EntityID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[id]; ok {
		return b.Name
	}
	return ""
}

func (w *World) Position(id env.EntityID) geom.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.panics[id] {
		panic(fmt.Sprintf("simenv: position read fault for %d", id))
	}
	if b, ok := w.bodies[id]; ok {
		return b.Position
	}
	return geom.Vec3{}
}

func (w *World) UnitInfo(id env.EntityID) (env.UnitInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.unitErrors[id]; err != nil {
		return env.UnitInfo{}, err
	}
	b, ok := w.bodies[id]
	if !ok {
		return env.UnitInfo{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return b.Unit, nil
}

func (w *World) ObjectInfo(id env.EntityID) (env.ObjectInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return env.ObjectInfo{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return b.Object, nil
}

// Interact gathers objects (a timed cast that despawns the node), loots
// corpses and attacks living hostile units.
func (w *World) Interact(id env.EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	local := w.bodies[w.localID]
	target, ok := w.bodies[id]
	if !ok || local == nil {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	if w.cast != nil {
		return ErrBusy
	}
	if geom.Distance(local.Position, target.Position) > w.opts.InteractRange {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	w.interactions = append(w.interactions, id)
	switch target.Kind {
	case env.KindGameObject:
		w.cast = &cast{target: id, remaining: w.opts.GatherTime}
		w.destination = nil
		local.Unit.Casting = true
		target.Object.InUse = true
	default:
		if target.Unit.Dead {
			target.Unit.Lootable = false
			return nil
		}
		target.Unit.Health -= w.opts.AttackDamage
		target.Unit.TargetID = w.localID
		target.Unit.InCombat = true
		local.Unit.InCombat = true
		local.Unit.TargetID = id
		if target.Unit.Health <= 0 {
			target.Unit.Health = 0
			target.Unit.Dead = true
			target.Unit.Lootable = true
			target.Unit.InCombat = false
			target.Unit.TargetID = 0
			local.Unit.InCombat = w.anyAttacker()
			local.Unit.TargetID = 0
		}
	}
	return nil
}

func (w *World) anyAttacker() bool {
	for _, b := range w.bodies {
		if b.ID != w.localID && !b.Unit.Dead && b.Unit.TargetID == w.localID {
			return true
		}
	}
	return false
}

func (w *World) MoveTo(pos geom.Vec3, _ env.MoveOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	dest := pos
	w.destination = &dest
	w.moves = append(w.moves, pos)
	return nil
}

func (w *World) StopMovement() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destination = nil
}

func (w *World) Raycast(a, b geom.Vec3, _ env.RaycastFlags) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, wall := range w.walls {
		if geom.SegmentIntersectsBox(a, b, wall.Min, wall.Max) {
			return true
		}
	}
	return false
}

// PathExists rejects destinations inside unreachable regions, then searches
// the ground plane around walls and unreachable regions.
func (w *World) PathExists(from, to geom.Vec3) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, box := range w.unreachable {
		if box.contains(to) {
			return false
		}
	}
	if len(w.walls) == 0 && len(w.unreachable) == 0 {
		return true
	}
	obstacles := make([]Box, 0, len(w.walls)+len(w.unreachable))
	obstacles = append(obstacles, w.walls...)
	obstacles = append(obstacles, w.unreachable...)
	return newNavGrid(obstacles, from, to).reachable(from, to)
}
