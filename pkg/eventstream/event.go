package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/turntable/pkg/chat"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a streamed turn is persisted.
	EventTypeTurnCompleted = "turntable.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a completed turn.
type TurnCompletedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        EventSource   `json:"source"`
	Turn          TurnMeta      `json:"turn"`
	Rows          []chat.RawRow `json:"rows"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Backend  string `json:"backend"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// TurnMeta captures turn lifecycle metadata for the event.
type TurnMeta struct {
	ConversationID string    `json:"conversation_id"`
	TurnID         string    `json:"turn_id"`
	Token          string    `json:"token,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	DurationMs     int64     `json:"duration_ms"`
	FunctionType   string    `json:"function_type,omitempty"`
	NewRows        int       `json:"new_rows"`
}

// NewTurnCompletedEvent stamps a v1 event with a fresh id.
func NewTurnCompletedEvent(source EventSource, turn TurnMeta, rows []chat.RawRow) *TurnCompletedEvent {
	if turn.DurationMs == 0 && !turn.StartedAt.IsZero() && !turn.CompletedAt.IsZero() {
		turn.DurationMs = turn.CompletedAt.Sub(turn.StartedAt).Milliseconds()
	}

	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Turn:          turn,
		Rows:          rows,
	}
}
