// Package storage persists chat rows locally in the same flat shape the
// backend uses, so stored turns go back through the same reconciler.
package storage

import (
	"context"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// Driver defines the interface for persisting and retrieving chat rows in a
// storage backend.
type Driver interface {
	// PutRows appends rows to a conversation, creating the conversation on
	// first use. Rows are deduplicated by id within a conversation; the
	// number of newly inserted rows is returned.
	PutRows(ctx context.Context, conversationID string, rows []chat.RawRow) (int, error)

	// Rows returns a conversation's rows in insertion order. CreatedAt is
	// returned as epoch milliseconds.
	Rows(ctx context.Context, conversationID string) ([]chat.RawRow, error)

	// Conversations lists stored conversations, most recently updated first.
	Conversations(ctx context.Context) ([]chat.ConversationSummary, error)

	// DeleteConversation removes a conversation and its rows.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Close closes the store and releases any resources.
	Close() error
}

// maxTitleLength bounds titles derived from the first user message.
const maxTitleLength = 60

// Title derives a conversation title from the first user row in rows.
func Title(rows []chat.RawRow) string {
	for _, r := range rows {
		if r.Role == chat.RoleUser && r.Content != "" {
			return truncateTitle(string(r.Content))
		}
	}
	return ""
}
