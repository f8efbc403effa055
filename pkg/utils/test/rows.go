package testutils

import (
	"github.com/papercomputeco/turntable/pkg/chat"
)

// NewRow creates a persisted row for testing.
func NewRow(id, turnID, role string, rowType chat.RowType, content string, createdAt any) chat.RawRow {
	return chat.RawRow{
		ID:        chat.ID(id),
		TurnID:    chat.ID(turnID),
		Role:      role,
		Type:      rowType,
		Content:   chat.Text(content),
		CreatedAt: createdAt,
	}
}

// NewTurnRows creates the rows of one complete question and answer turn.
func NewTurnRows(turnID, question, answer string, at int64) []chat.RawRow {
	return []chat.RawRow{
		NewRow(turnID+"-u", turnID, chat.RoleUser, "", question, at),
		NewRow(turnID+"-a", turnID, chat.RoleAssistant, chat.RowTypeAssistant, answer, at+1),
	}
}
