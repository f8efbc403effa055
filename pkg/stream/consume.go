package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/papercomputeco/turntable/pkg/sse"
)

// Result is what Consume leaves behind for the caller's persistence handoff.
type Result struct {
	Token          string
	ConversationID string
	Turn           LiveTurn

	// Malformed counts records that were skipped because they did not parse.
	Malformed int

	// Errors holds recoverable per-turn errors, such as *FunctionResultError.
	Errors []error
}

// Consume reads r until a done event, the end of the stream, or ctx is
// cancelled. Progress and side-channel events are delivered synchronously
// in arrival order.
//
// Cancelling ctx closes r when it is an io.Closer so a blocked read
// returns, and Consume then returns ctx.Err(). Read errors and in-band
// backend errors fail the whole turn and return a nil Result.
func Consume(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = c.Close()
		})
		defer stop()
	}

	var readerOpts []sse.ReaderOption
	if opts.Tee != nil {
		readerOpts = append(readerOpts, sse.WithTee(opts.Tee))
	}

	dec := NewDecoder(r, opts.Logger, readerOpts...)
	d := NewDispatcher(opts)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ev, err := dec.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			d.Finish()
			break
		}

		done, err := d.Dispatch(ev)
		if err != nil {
			var serr *ServerError
			if errors.As(err, &serr) {
				d.logger.Error("backend reported an error", "conversation_id", serr.ConversationID, "message", serr.Message)
			}
			return nil, err
		}
		if done {
			break
		}
	}

	return &Result{
		Token:          opts.Token,
		ConversationID: d.ConversationID(),
		Turn:           d.Turn(),
		Malformed:      dec.Malformed(),
		Errors:         d.Errors(),
	}, nil
}
