package chat

import "github.com/papercomputeco/turntable/pkg/utils"

// Message roles.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// RowType distinguishes the sub-parts of a persisted assistant turn.
// Plain single-part rows have an empty type.
type RowType string

const (
	RowTypeReasoning      RowType = "reasoning_content"
	RowTypeAssistant      RowType = "assistant_content"
	RowTypeFunctionCall   RowType = "function_call"
	RowTypeFunctionResult RowType = "function_result"
)

// RawRow is a message as the backend persists it: flat, one row per part,
// grouped into turns only by a shared turn id.
type RawRow struct {
	ID      ID      `json:"id"`
	TurnID  ID      `json:"turn_id,omitempty"`
	Role    string  `json:"role"`
	Type    RowType `json:"type,omitempty"`
	Content Text    `json:"content"`

	// CreatedAt is an ISO-8601 string (with or without offset) or an epoch
	// number, exactly as the backend sent it.
	CreatedAt any `json:"created_at,omitempty"`

	// Duration is the reasoning duration in seconds, set on reasoning rows.
	Duration *float64 `json:"duration,omitempty"`
}

// Turn returns the row's turn id, falling back to its own id.
func (r RawRow) Turn() ID {
	if r.TurnID != "" {
		return r.TurnID
	}
	return r.ID
}

// Timestamp returns CreatedAt as epoch milliseconds, 0 when unparsable.
func (r RawRow) Timestamp() int64 {
	return utils.ParseTimestamp(r.CreatedAt)
}
