// Package inmemory provides a storage driver that keeps everything in
// process memory.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/storage"
)

type conversation struct {
	summary chat.ConversationSummary
	updated int64
	rows    []chat.RawRow
	ids     map[chat.ID]struct{}
}

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of conversations
	mu sync.RWMutex

	// conversations is keyed by conversation id
	conversations map[string]*conversation

	now func() time.Time
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		conversations: make(map[string]*conversation),
		now:           time.Now,
	}
}

// PutRows appends rows to a conversation. Rows whose id is already stored
// are skipped.
func (s *Driver) PutRows(_ context.Context, conversationID string, rows []chat.RawRow) (int, error) {
	if conversationID == "" {
		return 0, errors.New("cannot store rows without a conversation id")
	}
	for _, r := range rows {
		if r.ID == "" {
			return 0, errors.New("cannot store a row without an id")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	c, ok := s.conversations[conversationID]
	if !ok {
		c = &conversation{
			summary: chat.ConversationSummary{ID: conversationID, CreatedAt: now},
			ids:     make(map[chat.ID]struct{}),
		}
		s.conversations[conversationID] = c
	}
	if c.summary.Title == "" {
		c.summary.Title = storage.Title(rows)
	}
	c.updated = now
	c.summary.UpdatedAt = now

	inserted := 0
	for _, r := range rows {
		if _, dup := c.ids[r.ID]; dup {
			continue
		}
		c.ids[r.ID] = struct{}{}

		// Normalize the way the SQL drivers do on the way back out.
		r.TurnID = r.Turn()
		r.CreatedAt = r.Timestamp()
		if r.Duration != nil {
			d := *r.Duration
			r.Duration = &d
		}
		c.rows = append(c.rows, r)
		inserted++
	}
	return inserted, nil
}

// Rows returns a copy of a conversation's rows.
func (s *Driver) Rows(_ context.Context, conversationID string) ([]chat.RawRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}
	return append([]chat.RawRow(nil), c.rows...), nil
}

// Conversations lists conversations, most recently updated first.
func (s *Driver) Conversations(_ context.Context) ([]chat.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].updated != list[j].updated {
			return list[i].updated > list[j].updated
		}
		return list[i].summary.ID < list[j].summary.ID
	})

	out := make([]chat.ConversationSummary, 0, len(list))
	for _, c := range list {
		out = append(out, c.summary)
	}
	return out, nil
}

// DeleteConversation removes a conversation.
func (s *Driver) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return storage.NotFoundError{ConversationID: conversationID}
	}
	delete(s.conversations, conversationID)
	return nil
}

// Close is a no-op for the in-memory storer.
func (s *Driver) Close() error {
	return nil
}
