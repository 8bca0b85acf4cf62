// Package view maintains predicate-gated subsets of the entity cache.
package view

import (
	"slices"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/telemetry"
)

// Predicate decides which entities a view tracks.
type Predicate interface {
	FilterUnit(e *entity.Entity) bool
	FilterGameObject(e *entity.Entity) bool
}

// Funcs adapts a pair of functions into a Predicate. A nil function rejects
// everything of that family.
type Funcs struct {
	Unit   func(e *entity.Entity) bool
	Object func(e *entity.Entity) bool
}

func (f Funcs) FilterUnit(e *entity.Entity) bool {
	return f.Unit != nil && f.Unit(e)
}

func (f Funcs) FilterGameObject(e *entity.Entity) bool {
	return f.Object != nil && f.Object(e)
}

// View tracks identifiers of cache entities that satisfy its predicate. It
// never owns records: every read resolves identifiers through the cache.
type View struct {
	name    string
	cache   *entity.Cache
	pred    Predicate
	metrics telemetry.Metrics

	units   map[env.EntityID]struct{}
	objects map[env.EntityID]struct{}

	cancel func()
}

// New registers a view with cache. Entities already tracked by the cache
// are evaluated immediately; later arrivals are gated by creation events.
func New(name string, cache *entity.Cache, pred Predicate, metrics telemetry.Metrics) *View {
	v := &View{
		name:    name,
		cache:   cache,
		pred:    pred,
		metrics: telemetry.OrNop(metrics),
		units:   make(map[env.EntityID]struct{}),
		objects: make(map[env.EntityID]struct{}),
	}
	for _, e := range cache.Sorted() {
		v.consider(e)
	}
	v.cancel = cache.Subscribe(v.handle)
	return v
}

func (v *View) Name() string {
	return v.name
}

// Close detaches the view from the cache.
func (v *View) Close() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *View) handle(event entity.Event) {
	switch event.Type {
	case entity.EventCreated:
		v.consider(event.Entity)
	case entity.EventRemoved:
		delete(v.units, event.Entity.ID)
		delete(v.objects, event.Entity.ID)
	}
}

func (v *View) consider(e *entity.Entity) {
	if e.ID == v.cache.LocalID() {
		return
	}
	switch {
	case e.IsUnit():
		if v.pred.FilterUnit(e) {
			v.units[e.ID] = struct{}{}
		}
	case e.IsObject():
		if v.pred.FilterGameObject(e) {
			v.objects[e.ID] = struct{}{}
		}
	}
}

// ProcessChanges re-evaluates the tracked members and evicts those that no
// longer satisfy the predicate or are gone from the cache. It returns the
// number of evictions.
func (v *View) ProcessChanges() int {
	evicted := 0
	for id := range v.units {
		e, ok := v.cache.Get(id)
		if !ok || !e.IsUnit() || !v.pred.FilterUnit(e) {
			delete(v.units, id)
			evicted++
		}
	}
	for id := range v.objects {
		e, ok := v.cache.Get(id)
		if !ok || !e.IsObject() || !v.pred.FilterGameObject(e) {
			delete(v.objects, id)
			evicted++
		}
	}
	if evicted > 0 {
		v.metrics.Add(telemetry.MetricViewEvictions, uint64(evicted))
	}
	return evicted
}

// Rescan evaluates every cache entity, admitting ones that became eligible
// after their creation event. Its cost is proportional to the cache size.
func (v *View) Rescan() {
	for _, e := range v.cache.Sorted() {
		v.consider(e)
	}
	v.ProcessChanges()
}

// Units returns the tracked units keyed by identifier.
func (v *View) Units() map[env.EntityID]*entity.Entity {
	return v.resolve(v.units)
}

// Objects returns the tracked game objects keyed by identifier.
func (v *View) Objects() map[env.EntityID]*entity.Entity {
	return v.resolve(v.objects)
}

func (v *View) resolve(ids map[env.EntityID]struct{}) map[env.EntityID]*entity.Entity {
	out := make(map[env.EntityID]*entity.Entity, len(ids))
	for id := range ids {
		if e, ok := v.cache.Get(id); ok {
			out[id] = e
		}
	}
	return out
}

// Sorted returns every tracked member in ascending identifier order.
func (v *View) Sorted() []*entity.Entity {
	ids := make([]env.EntityID, 0, len(v.units)+len(v.objects))
	for id := range v.units {
		ids = append(ids, id)
	}
	for id := range v.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*entity.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := v.cache.Get(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether id is a member.
func (v *View) Contains(id env.EntityID) bool {
	_, unit := v.units[id]
	_, object := v.objects[id]
	return unit || object
}

func (v *View) Len() int {
	return len(v.units) + len(v.objects)
}
