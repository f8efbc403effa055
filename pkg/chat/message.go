package chat

// Message is the structured, UI-facing message the live stream produces and
// the reconciler rebuilds from persisted rows.
type Message struct {
	ID                 ID       `json:"id"`
	Role               string   `json:"role"`
	Content            string   `json:"content"`
	Reasoning          *string  `json:"reasoning,omitempty"`
	Duration           *float64 `json:"duration,omitempty"`
	IsReasoningVisible bool     `json:"isReasoningVisible"`
	Timestamp          int64    `json:"timestamp"`
	TurnID             ID       `json:"turnId"`
}

// RolePriority orders roles that share a timestamp: user, then system, then
// assistant. Unknown roles sort last.
func RolePriority(role string) int {
	switch role {
	case RoleUser:
		return 0
	case RoleSystem:
		return 1
	case RoleAssistant:
		return 2
	default:
		return 3
	}
}
