package chat

import "encoding/json"

// Function types the backend can invoke mid-turn.
const (
	FunctionWebSearch = "web_search"
	FunctionHotTopics = "hot_topics"
	FunctionUnknown   = "unknown"
)

// ToolOutput is the side-channel result of a tool invocation. It is shown
// next to the chat rather than as a chat message.
type ToolOutput struct {
	Type      string          `json:"type"`
	Query     string          `json:"query,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ClearsToolOutput reports whether detecting functionType should discard any
// tool output left over from a previous turn.
func ClearsToolOutput(functionType string) bool {
	return functionType == FunctionWebSearch || functionType == FunctionHotTopics
}
