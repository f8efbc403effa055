package eventstream

import (
	"context"
	"errors"
)

// ErrNilTurnEvent is returned by publishers handed a nil event.
var ErrNilTurnEvent = errors.New("nil turn event")

// Publisher announces persisted turns to downstream consumers. The worker
// pool calls PublishTurn once per turn that stored at least one new row.
// Implementations must be safe for concurrent use.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	Close() error
}
