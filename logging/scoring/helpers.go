package scoring

import (
	"context"

	"mine-and-die/agent/logging"
)

const (
	// EventBestUnitChanged is emitted when a recompute picks a different unit.
	EventBestUnitChanged logging.EventType = "scoring.best_unit_changed"
	// EventTaskSelected is emitted when the planner settles on a new task.
	EventTaskSelected logging.EventType = "scoring.task_selected"
)

// BestUnitPayload captures the winning score and how many units competed.
type BestUnitPayload struct {
	Score      float64 `json:"score"`
	Candidates int     `json:"candidates"`
	Penalized  bool    `json:"penalized,omitempty"`
}

// TaskPayload captures the selected task.
type TaskPayload struct {
	Kind  string  `json:"kind"`
	Score float64 `json:"score"`
}

// BestUnitChanged publishes a scorer decision.
func BestUnitChanged(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload BestUnitPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBestUnitChanged,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindAgent},
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryScoring,
		Payload:  payload,
	})
}

// TaskSelected publishes a planner decision.
func TaskSelected(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload TaskPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTaskSelected,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindAgent},
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryScoring,
		Payload:  payload,
	})
}
