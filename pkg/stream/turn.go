package stream

import (
	"strings"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// ReasoningCompleteMarker is appended to reported reasoning text once the
// reasoning phase has finished, so a caller can tell the phase change apart
// from more reasoning text.
const ReasoningCompleteMarker = "[[REASONING_COMPLETE]]"

// SplitReasoning strips ReasoningCompleteMarker from reported reasoning text
// and reports whether it was present.
func SplitReasoning(reported string) (string, bool) {
	text, found := strings.CutSuffix(reported, ReasoningCompleteMarker)
	return text, found
}

// LiveTurn accumulates one assistant turn while its stream is consumed.
//
// AnswerText only ever grows. ReasoningText only grows until the reasoning
// phase ends; the terminal event may replace it once with the full text.
type LiveTurn struct {
	AnswerText         string
	ReasoningText      string
	ReasoningComplete  bool
	ActiveFunctionType string
	FunctionResult     *chat.ToolOutput
}

// Progress is the immutable snapshot handed to the caller after every
// state change.
type Progress struct {
	// Token is the caller's turn token, echoed back unchanged.
	Token string

	ConversationID string
	AnswerText     string

	// ReasoningText ends with ReasoningCompleteMarker once the reasoning
	// phase has finished.
	ReasoningText     string
	ReasoningComplete bool

	Done bool
}
