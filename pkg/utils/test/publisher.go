package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/turntable/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnCompletedEvent

	// Fail causes PublishTurn to return an error.
	Fail bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	if m.Fail {
		return errors.New("mock publish failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the events published so far.
func (m *MockPublisher) Events() []*eventstream.TurnCompletedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.TurnCompletedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
