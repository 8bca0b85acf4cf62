package locations

import (
	"context"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
)

// Recorder stores the position of every harvestable object the cache
// discovers.
type Recorder struct {
	store  *Store
	cache  *entity.Cache
	cancel func()
	errs   int
}

func NewRecorder(store *Store, cache *entity.Cache) *Recorder {
	r := &Recorder{store: store, cache: cache}
	r.cancel = cache.Subscribe(r.handle, env.KindGameObject)
	return r
}

func (r *Recorder) handle(event entity.Event) {
	if event.Type != entity.EventCreated || !event.Entity.IsObject() {
		return
	}
	kind, ok := KindForResources(event.Entity.Object.Resources)
	if !ok {
		return
	}
	r.store.SetTick(r.cache.Tick())
	loc := Location{Kind: kind, Position: event.Entity.Position, Note: event.Entity.Name}
	if _, err := r.store.Add(context.Background(), r.cache.MapID(), loc); err != nil {
		r.errs++
	}
}

// Errors counts failed recordings.
func (r *Recorder) Errors() int {
	return r.errs
}

func (r *Recorder) Close() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
