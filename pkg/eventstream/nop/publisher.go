// Package nop provides the publisher used when the event stream is disabled.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/turntable/pkg/eventstream"
)

// Publisher drops every event and counts what it dropped.
type Publisher struct {
	dropped atomic.Int64
}

var _ eventstream.Publisher = (*Publisher)(nil)

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	p.dropped.Add(1)
	return nil
}

// Dropped returns the number of events discarded so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
