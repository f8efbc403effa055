// Package stream decodes the chat backend's event stream and folds it into a
// single in-progress assistant turn.
//
// A Decoder turns the raw response body into typed Events. A Dispatcher owns
// the LiveTurn accumulator for one stream, reports progress snapshots to the
// caller and emits ToolPhaseEvents on a side channel. Consume wires the two
// together for the common case.
package stream

import (
	"encoding/json"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// Kind tags an Event. The set is closed; unknown kinds are tolerated and
// handled by the legacy fallback.
type Kind string

const (
	KindReasoningStart    Kind = "reasoning_start"
	KindReasoningContent  Kind = "reasoning_content"
	KindReasoningEnd      Kind = "reasoning_end"
	KindReasoningComplete Kind = "reasoning_complete"

	KindAnsweringStart    Kind = "answering_start"
	KindAnsweringContent  Kind = "answering_content"
	KindAnsweringComplete Kind = "answering_complete"

	KindFunctionStreamStart  Kind = "function_stream_start"
	KindFunctionCallDetected Kind = "function_call_detected"
	KindFunctionResult       Kind = "function_result"
	KindFunctionExecuted     Kind = "function_executed"

	KindExecutingFunction  Kind = "executing_function"
	KindGeneratingQuery    Kind = "generating_query"
	KindPerformingSearch   Kind = "performing_search"
	KindQueryGenerated     Kind = "query_generated"
	KindSynthesizingAnswer Kind = "synthesizing_answer"
	KindGeneratingResponse Kind = "generating_response"
	KindContentDirect      Kind = "content_direct"

	KindDone  Kind = "done"
	KindError Kind = "error"
)

// legacyDone is the bare content value older backends used to end a stream.
const legacyDone = "[DONE]"

// IsStep reports whether k only describes what the backend is doing right now.
func (k Kind) IsStep() bool {
	switch k {
	case KindExecutingFunction, KindGeneratingQuery, KindPerformingSearch,
		KindQueryGenerated, KindSynthesizingAnswer, KindGeneratingResponse,
		KindContentDirect:
		return true
	default:
		return false
	}
}

// Event is one decoded stream record.
type Event struct {
	Type Kind `json:"type"`

	// Content is a string for text kinds and an object for function kinds,
	// so it is kept raw until the dispatcher knows which one to expect.
	Content json.RawMessage `json:"content,omitempty"`

	// ConversationID, once seen, is authoritative for the rest of the stream.
	ConversationID chat.ID `json:"conversation_id,omitempty"`

	// Reasoning is the full reasoning text some backends attach to the
	// reasoning terminal event.
	Reasoning *string `json:"reasoning,omitempty"`
}

// Text returns Content when it is a JSON string.
func (e *Event) Text() (string, bool) {
	if len(e.Content) == 0 || e.Content[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(e.Content, &s); err != nil {
		return "", false
	}
	return s, true
}
