// Package entity owns the authoritative set of entities the agent knows
// about and reconciles it against the environment once per tick.
package entity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	cachelog "mine-and-die/agent/logging/cache"
)

// ErrNotFound is returned for identifiers the cache does not track.
var ErrNotFound = errors.New("entity not found")

const (
	DefaultScanRadius       = 100.0
	DefaultLineOfSightRange = 60.0
	DefaultEyeHeight        = 2.0
)

// Config tunes the cache scan.
type Config struct {
	ScanRadius       float64
	LineOfSightRange float64
	EyeHeight        float64
}

func (c Config) withDefaults() Config {
	if c.ScanRadius <= 0 {
		c.ScanRadius = DefaultScanRadius
	}
	if c.LineOfSightRange <= 0 {
		c.LineOfSightRange = DefaultLineOfSightRange
	}
	if c.EyeHeight < 0 {
		c.EyeHeight = DefaultEyeHeight
	}
	return c
}

// Deps bundles the cache collaborators. LineOfSight, Publisher and Metrics
// are optional.
type Deps struct {
	Percepts    env.Percepts
	LineOfSight env.LineOfSight
	Clock       env.Clock
	Publisher   logging.Publisher
	Metrics     telemetry.Metrics
}

// PulseReport summarises one reconciliation pass.
type PulseReport struct {
	Tick    uint64
	Added   int
	Updated int
	Removed int
	Failed  int
}

// Cache tracks every nearby entity by identifier. It is not safe for
// concurrent use; the agent loop drives it from a single goroutine.
type Cache struct {
	cfg      Config
	percepts env.Percepts
	los      env.LineOfSight
	clock    env.Clock
	pub      logging.Publisher
	metrics  telemetry.Metrics

	entities map[env.EntityID]*Entity
	localID  env.EntityID
	tick     uint64

	subscribers []subscriber
	nextSubID   int
}

func NewCache(cfg Config, deps Deps) (*Cache, error) {
	if deps.Percepts == nil {
		return nil, errors.New("entity cache requires percepts")
	}
	if deps.Clock == nil {
		return nil, errors.New("entity cache requires a clock")
	}
	return &Cache{
		cfg:      cfg.withDefaults(),
		percepts: deps.Percepts,
		los:      deps.LineOfSight,
		clock:    deps.Clock,
		pub:      logging.OrNop(deps.Publisher),
		metrics:  telemetry.OrNop(deps.Metrics),
		entities: make(map[env.EntityID]*Entity),
	}, nil
}

// Tick returns the number of completed pulses.
func (c *Cache) Tick() uint64 {
	return c.tick
}

// Pulse reconciles the cache with the environment. The local agent is
// refreshed first; new identifiers are inserted and announced; tracked
// identifiers are existence-checked and updated; removals are announced and
// applied last. A failure on one entity never aborts the pass.
func (c *Cache) Pulse() PulseReport {
	c.tick++
	now := c.clock.Now()
	report := PulseReport{Tick: c.tick}

	local := c.refreshLocal(now, &report)

	ids, err := c.nearbyIDs()
	if err != nil {
		report.Failed++
		c.reportFailure(0, env.KindUnknown, "scan", err)
	}
	fresh := make(map[env.EntityID]struct{})
	for _, id := range ids {
		if id == 0 || id == c.localID {
			continue
		}
		if _, tracked := c.entities[id]; tracked {
			continue
		}
		if _, seen := fresh[id]; seen {
			continue
		}
		e, err := c.observe(id, local, now)
		if err != nil {
			report.Failed++
			c.reportFailure(id, env.KindUnknown, "create", err)
			continue
		}
		if e == nil {
			continue
		}
		c.entities[id] = e
		fresh[id] = struct{}{}
		report.Added++
		report.Failed += c.dispatch(Event{Type: EventCreated, Entity: e})
		cachelog.EntityCreated(context.Background(), c.pub, c.tick, entityRef(e), cachelog.EntityPayload{Name: e.Name})
	}

	var removals []*Entity
	for _, id := range c.sortedIDs() {
		if id == c.localID {
			continue
		}
		if _, ok := fresh[id]; ok {
			continue
		}
		e := c.entities[id]
		exists, err := c.exists(id)
		if err != nil {
			report.Failed++
			c.reportFailure(id, e.Kind, "exists", err)
			continue
		}
		if !exists {
			removals = append(removals, e)
			continue
		}
		if err := c.safeUpdate(e, local, now); err != nil {
			report.Failed++
			c.reportFailure(id, e.Kind, "update", err)
			continue
		}
		report.Updated++
	}

	for _, e := range removals {
		report.Failed += c.remove(e)
		report.Removed++
	}

	c.metrics.Add(telemetry.MetricPulses, 1)
	c.metrics.Add(telemetry.MetricEntitiesCreated, uint64(report.Added))
	c.metrics.Add(telemetry.MetricEntitiesRemoved, uint64(report.Removed))
	c.metrics.Add(telemetry.MetricUpdateFailures, uint64(report.Failed))
	c.metrics.Store(telemetry.MetricEntitiesTracked, uint64(len(c.entities)))
	return report
}

// refreshLocal keeps the local agent record current ahead of the generic
// scan and returns it, or nil when it cannot be resolved this tick.
func (c *Cache) refreshLocal(now time.Duration, report *PulseReport) *Entity {
	id := c.percepts.LocalPlayerID()
	if id != c.localID && c.localID != 0 {
		if previous, ok := c.entities[c.localID]; ok {
			report.Failed += c.remove(previous)
			report.Removed++
		}
	}
	c.localID = id
	if id == 0 {
		cachelog.LocalAgentMissing(context.Background(), c.pub, c.tick, logging.EntityRef{Kind: logging.EntityKindAgent})
		return nil
	}
	exists, err := c.exists(id)
	if err != nil || !exists {
		if err != nil {
			report.Failed++
			c.reportFailure(id, env.KindPlayer, "local", err)
		}
		if previous, ok := c.entities[id]; ok && err == nil {
			report.Failed += c.remove(previous)
			report.Removed++
		}
		cachelog.LocalAgentMissing(context.Background(), c.pub, c.tick, logging.Ref(logging.EntityKindAgent, uint64(id)))
		return nil
	}
	if local, ok := c.entities[id]; ok {
		if err := c.safeUpdate(local, nil, now); err != nil {
			report.Failed++
			c.reportFailure(id, local.Kind, "local", err)
		} else {
			report.Updated++
		}
		return local
	}
	local, err := c.observe(id, nil, now)
	if err != nil || local == nil {
		if err != nil {
			report.Failed++
			c.reportFailure(id, env.KindPlayer, "local", err)
		}
		return nil
	}
	c.entities[id] = local
	report.Added++
	report.Failed += c.dispatch(Event{Type: EventCreated, Entity: local})
	cachelog.EntityCreated(context.Background(), c.pub, c.tick, entityRef(local), cachelog.EntityPayload{Name: local.Name})
	return local
}

// observe classifies and builds a record for a newly seen identifier. A nil
// entity with a nil error means the identifier failed the sanity checks.
func (c *Cache) observe(id env.EntityID, local *Entity, now time.Duration) (e *Entity, err error) {
	defer recoverInto(&err)
	name := c.percepts.Name(id)
	if name == "" {
		return nil, nil
	}
	kind := c.percepts.Kind(id)
	e = &Entity{ID: id, Kind: kind, Name: name, FirstSeen: now}
	switch kind {
	case env.KindUnit, env.KindPlayer:
		e.Unit = &UnitState{}
	case env.KindGameObject:
		e.Object = &ObjectState{}
	default:
		return nil, nil
	}
	if err := c.update(e, local, now); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Cache) safeUpdate(e *Entity, local *Entity, now time.Duration) (err error) {
	defer recoverInto(&err)
	return c.update(e, local, now)
}

// update refreshes the per-kind attributes of e in place.
func (c *Cache) update(e *Entity, local *Entity, now time.Duration) error {
	e.Position = c.percepts.Position(e.ID)
	switch e.Kind {
	case env.KindUnit, env.KindPlayer:
		info, err := c.percepts.UnitInfo(e.ID)
		if err != nil {
			return fmt.Errorf("unit info: %w", err)
		}
		e.Unit.UnitInfo = info
		e.Unit.InLineOfSight = c.lineOfSight(local, e)
	case env.KindGameObject:
		info, err := c.percepts.ObjectInfo(e.ID)
		if err != nil {
			return fmt.Errorf("object info: %w", err)
		}
		e.Object.ObjectInfo = info
	}
	e.LastUpdated = now
	return nil
}

func (c *Cache) lineOfSight(local, target *Entity) bool {
	if local == nil || target == nil || local.ID == target.ID {
		return local != nil
	}
	if !geom.Within(local.Position, target.Position, c.cfg.LineOfSightRange) {
		return false
	}
	if c.los == nil {
		return true
	}
	eye := geom.Vec3{Z: c.cfg.EyeHeight}
	return !c.los.Raycast(local.Position.Add(eye), target.Position.Add(eye), env.RaycastLineOfSight)
}

func (c *Cache) remove(e *Entity) (failed int) {
	failed = c.dispatch(Event{Type: EventRemoved, Entity: e})
	cachelog.EntityRemoved(context.Background(), c.pub, c.tick, entityRef(e), cachelog.EntityPayload{Name: e.Name})
	delete(c.entities, e.ID)
	return failed
}

func (c *Cache) nearbyIDs() (ids []env.EntityID, err error) {
	defer recoverInto(&err)
	return c.percepts.NearbyEntityIDs(c.cfg.ScanRadius), nil
}

func (c *Cache) exists(id env.EntityID) (ok bool, err error) {
	defer recoverInto(&err)
	return c.percepts.Exists(id), nil
}

func (c *Cache) reportFailure(id env.EntityID, kind env.Kind, phase string, err error) {
	cachelog.EntityUpdateFailed(context.Background(), c.pub, c.tick,
		logging.Ref(refKind(kind), uint64(id)),
		cachelog.UpdateFailedPayload{Error: err.Error(), Phase: phase})
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

// Get returns the tracked record for id.
func (c *Cache) Get(id env.EntityID) (*Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}

// Lookup is Get with an ErrNotFound error for stale identifiers.
func (c *Cache) Lookup(id env.EntityID) (*Entity, error) {
	if e, ok := c.entities[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Contains reports whether id is tracked.
func (c *Cache) Contains(id env.EntityID) bool {
	_, ok := c.entities[id]
	return ok
}

// Local returns the local agent record.
func (c *Cache) Local() (*Entity, bool) {
	if c.localID == 0 {
		return nil, false
	}
	return c.Get(c.localID)
}

// LocalID returns the identifier of the local agent as of the last pulse.
func (c *Cache) LocalID() env.EntityID {
	return c.localID
}

// MapID reports the host map the agent is on.
func (c *Cache) MapID() uint32 {
	return c.percepts.MapID()
}

func (c *Cache) Len() int {
	return len(c.entities)
}

// IDs returns every tracked identifier in ascending order.
func (c *Cache) IDs() []env.EntityID {
	return c.sortedIDs()
}

func (c *Cache) sortedIDs() []env.EntityID {
	ids := make([]env.EntityID, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Units returns units and players keyed by identifier.
func (c *Cache) Units() map[env.EntityID]*Entity {
	out := make(map[env.EntityID]*Entity)
	for id, e := range c.entities {
		if e.IsUnit() {
			out[id] = e
		}
	}
	return out
}

// Objects returns game objects keyed by identifier.
func (c *Cache) Objects() map[env.EntityID]*Entity {
	out := make(map[env.EntityID]*Entity)
	for id, e := range c.entities {
		if e.IsObject() {
			out[id] = e
		}
	}
	return out
}

// Sorted returns the records of the given kinds in ascending identifier
// order. No kinds means every kind.
func (c *Cache) Sorted(kinds ...env.Kind) []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, id := range c.sortedIDs() {
		e := c.entities[id]
		if len(kinds) == 0 || slices.Contains(kinds, e.Kind) {
			out = append(out, e)
		}
	}
	return out
}

func entityRef(e *Entity) logging.EntityRef {
	return logging.Ref(refKind(e.Kind), uint64(e.ID))
}

func refKind(kind env.Kind) logging.EntityKind {
	switch kind {
	case env.KindUnit:
		return logging.EntityKindUnit
	case env.KindPlayer:
		return logging.EntityKindPlayer
	case env.KindGameObject:
		return logging.EntityKindObject
	default:
		return logging.EntityKindUnknown
	}
}
