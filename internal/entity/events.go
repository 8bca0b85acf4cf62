package entity

import (
	"slices"

	"mine-and-die/agent/internal/env"
)

// EventType distinguishes cache notifications.
type EventType uint8

const (
	EventCreated EventType = iota + 1
	EventRemoved
)

// Event is delivered to subscribers synchronously during Pulse. Removal
// events fire before the record leaves the cache.
type Event struct {
	Type   EventType
	Entity *Entity
}

// Handler receives cache events.
type Handler func(Event)

type subscriber struct {
	id      int
	kinds   []env.Kind
	handler Handler
}

// Subscribe registers handler for events about entities of the given kinds
// (all kinds when none are given). Handlers run in registration order. The
// returned function cancels the subscription.
func (c *Cache) Subscribe(handler Handler, kinds ...env.Kind) (cancel func()) {
	if handler == nil {
		return func() {}
	}
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, kinds: slices.Clone(kinds), handler: handler})
	return func() {
		c.subscribers = slices.DeleteFunc(c.subscribers, func(s subscriber) bool { return s.id == id })
	}
}

// dispatch delivers event to every matching subscriber and returns how many
// handlers failed. A panicking handler is reported and the rest still run.
func (c *Cache) dispatch(event Event) (failed int) {
	subs := slices.Clone(c.subscribers)
	for _, s := range subs {
		if len(s.kinds) > 0 && !slices.Contains(s.kinds, event.Entity.Kind) {
			continue
		}
		if err := notify(s.handler, event); err != nil {
			failed++
			c.reportFailure(event.Entity.ID, event.Entity.Kind, "notify", err)
		}
	}
	return failed
}

func notify(handler Handler, event Event) (err error) {
	defer recoverInto(&err)
	handler(event)
	return nil
}
