package behavior

import (
	"context"

	"mine-and-die/agent/logging"
)

const (
	// EventStatePushed is emitted when a state is pushed onto the stack.
	EventStatePushed logging.EventType = "behavior.state_pushed"
	// EventStatePopped is emitted when a completed state leaves the stack.
	EventStatePopped logging.EventType = "behavior.state_popped"
	// EventStateTimedOut is emitted when a state exceeds its time budget.
	EventStateTimedOut logging.EventType = "behavior.state_timed_out"
	// EventStackCleared is emitted when an interrupt unwinds the stack.
	EventStackCleared logging.EventType = "behavior.stack_cleared"
	// EventBaseCompletionIgnored is emitted when the base state claims completion.
	EventBaseCompletionIgnored logging.EventType = "behavior.base_completion_ignored"
)

// StatePayload describes a stack transition.
type StatePayload struct {
	State string `json:"state"`
	Depth int    `json:"depth"`
	// ElapsedMillis is the time the state spent active, when known.
	ElapsedMillis int64 `json:"elapsedMillis,omitempty"`
}

// ClearedPayload describes an unwound stack.
type ClearedPayload struct {
	Reason  string `json:"reason"`
	Dropped int    `json:"dropped"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindState},
		Severity: severity,
		Category: logging.CategoryBehavior,
		Payload:  payload,
	})
}

// StatePushed publishes a push transition.
func StatePushed(ctx context.Context, pub logging.Publisher, tick uint64, payload StatePayload) {
	publish(ctx, pub, EventStatePushed, logging.SeverityInfo, tick, payload)
}

// StatePopped publishes a pop transition.
func StatePopped(ctx context.Context, pub logging.Publisher, tick uint64, payload StatePayload) {
	publish(ctx, pub, EventStatePopped, logging.SeverityInfo, tick, payload)
}

// StateTimedOut publishes a timeout.
func StateTimedOut(ctx context.Context, pub logging.Publisher, tick uint64, payload StatePayload) {
	publish(ctx, pub, EventStateTimedOut, logging.SeverityWarn, tick, payload)
}

// StackCleared publishes an interrupt unwind.
func StackCleared(ctx context.Context, pub logging.Publisher, tick uint64, payload ClearedPayload) {
	publish(ctx, pub, EventStackCleared, logging.SeverityWarn, tick, payload)
}

// BaseCompletionIgnored publishes a misbehaving base state report.
func BaseCompletionIgnored(ctx context.Context, pub logging.Publisher, tick uint64, payload StatePayload) {
	publish(ctx, pub, EventBaseCompletionIgnored, logging.SeverityError, tick, payload)
}
