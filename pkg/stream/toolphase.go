package stream

import "github.com/papercomputeco/turntable/pkg/chat"

// ToolPhaseKind classifies a ToolPhaseEvent.
type ToolPhaseKind string

const (
	// ToolPhaseClear asks the subscriber to drop tool output left over from
	// an earlier turn before this turn's result arrives.
	ToolPhaseClear ToolPhaseKind = "clear"

	// ToolPhaseDetected announces that the turn invokes a function.
	ToolPhaseDetected ToolPhaseKind = "detected"

	// ToolPhaseStatus carries a "what is happening now" message.
	ToolPhaseStatus ToolPhaseKind = "status"

	// ToolPhaseResult carries the parsed function result.
	ToolPhaseResult ToolPhaseKind = "result"

	// ToolPhaseError reports a function result that could not be parsed.
	ToolPhaseError ToolPhaseKind = "error"
)

// ToolPhaseEvent is emitted on the side channel instead of mutating shared
// state directly. A subscriber decides how to apply it.
type ToolPhaseEvent struct {
	Kind           ToolPhaseKind
	Token          string
	ConversationID string
	FunctionType   string

	// Step and Status are set for ToolPhaseStatus events.
	Step   Kind
	Status string

	// Output is set for ToolPhaseResult and ToolPhaseError events.
	Output *chat.ToolOutput
}

// ToolPhaseSink receives side-channel events in stream order.
type ToolPhaseSink interface {
	ApplyToolPhase(ev ToolPhaseEvent)
}

// SinkFunc adapts a plain function to ToolPhaseSink.
type SinkFunc func(ev ToolPhaseEvent)

// ApplyToolPhase calls f(ev).
func (f SinkFunc) ApplyToolPhase(ev ToolPhaseEvent) {
	f(ev)
}
