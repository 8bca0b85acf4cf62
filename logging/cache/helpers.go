package cache

import (
	"context"

	"mine-and-die/agent/logging"
)

const (
	// EventEntityCreated is emitted when a pulse first observes an entity.
	EventEntityCreated logging.EventType = "cache.entity_created"
	// EventEntityRemoved is emitted when a tracked entity fails its existence check.
	EventEntityRemoved logging.EventType = "cache.entity_removed"
	// EventEntityUpdateFailed is emitted when refreshing one entity fails.
	EventEntityUpdateFailed logging.EventType = "cache.entity_update_failed"
	// EventLocalAgentMissing is emitted when the local agent cannot be resolved.
	EventLocalAgentMissing logging.EventType = "cache.local_agent_missing"
)

// EntityPayload describes the entity a lifecycle event refers to.
type EntityPayload struct {
	Name string `json:"name,omitempty"`
}

// UpdateFailedPayload carries the failure reason.
type UpdateFailedPayload struct {
	Error string `json:"error"`
	Phase string `json:"phase"`
}

// EntityCreated publishes an entity creation event.
func EntityCreated(ctx context.Context, pub logging.Publisher, tick uint64, entity logging.EntityRef, payload EntityPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEntityCreated,
		Tick:     tick,
		Actor:    entity,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPerception,
		Payload:  payload,
	})
}

// EntityRemoved publishes an entity eviction event.
func EntityRemoved(ctx context.Context, pub logging.Publisher, tick uint64, entity logging.EntityRef, payload EntityPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEntityRemoved,
		Tick:     tick,
		Actor:    entity,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPerception,
		Payload:  payload,
	})
}

// EntityUpdateFailed publishes a per-entity failure caught by the pulse.
func EntityUpdateFailed(ctx context.Context, pub logging.Publisher, tick uint64, entity logging.EntityRef, payload UpdateFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEntityUpdateFailed,
		Tick:     tick,
		Actor:    entity,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPerception,
		Payload:  payload,
	})
}

// LocalAgentMissing publishes a warning when the local agent is unresolvable.
func LocalAgentMissing(ctx context.Context, pub logging.Publisher, tick uint64, agent logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLocalAgentMissing,
		Tick:     tick,
		Actor:    agent,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPerception,
	})
}
