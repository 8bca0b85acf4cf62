package locations

import (
	"context"

	"mine-and-die/agent/logging"
)

const (
	// EventLocationRecorded is emitted when a new location entry is stored.
	EventLocationRecorded logging.EventType = "locations.recorded"
	// EventFlushFailed is emitted when a dirty map could not be persisted.
	EventFlushFailed logging.EventType = "locations.flush_failed"
	// EventLoadFailed is emitted when a map could not be loaded.
	EventLoadFailed logging.EventType = "locations.load_failed"
)

// LocationPayload describes a stored entry.
type LocationPayload struct {
	MapID uint32  `json:"mapId"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// FailurePayload describes a storage failure.
type FailurePayload struct {
	MapID uint32 `json:"mapId"`
	Error string `json:"error"`
}

// LocationRecorded publishes a discovery.
func LocationRecorded(ctx context.Context, pub logging.Publisher, tick uint64, payload LocationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLocationRecorded,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindLocation},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}

// FlushFailed publishes a persistence failure.
func FlushFailed(ctx context.Context, pub logging.Publisher, tick uint64, payload FailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFlushFailed,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindLocation},
		Severity: logging.SeverityError,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}

// LoadFailed publishes a load failure.
func LoadFailed(ctx context.Context, pub logging.Publisher, tick uint64, payload FailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoadFailed,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindLocation},
		Severity: logging.SeverityError,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}
