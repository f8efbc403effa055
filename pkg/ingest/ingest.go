// Package ingest uploads files into a conversation and follows their
// server-side processing with the backoff poller until every file settles.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/logger"
	"github.com/papercomputeco/turntable/pkg/poller"
)

// Client is the part of the backend client ingestion needs.
type Client interface {
	UploadFiles(ctx context.Context, conversationID string, paths []string) ([]string, error)
	poller.StatusFetcher
}

// Options configures Files.
type Options struct {
	Poller poller.Config

	// OnStatus receives every status the poller observes.
	OnStatus func(poller.StatusUpdate)

	Logger *slog.Logger
}

// Outcome is the final state of one uploaded file.
type Outcome struct {
	FileID       string
	Path         string
	Status       chat.FileProcessingStatus
	ErrorMessage string
}

// Processed reports whether the backend finished ingesting the file.
func (o Outcome) Processed() bool {
	return o.Status == chat.FileProcessed
}

// Files uploads paths into conversationID and blocks until every returned
// file id reaches a terminal status, the poller gives up on it, or ctx is
// cancelled. Outcomes are in upload order. On cancellation the outcomes
// seen so far are returned with ctx.Err().
func Files(ctx context.Context, c Client, conversationID string, paths []string, opts Options) ([]Outcome, error) {
	if conversationID == "" {
		return nil, errors.New("uploading files requires a conversation id")
	}
	if len(paths) == 0 {
		return nil, nil
	}

	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}

	ids, err := c.UploadFiles(ctx, conversationID, paths)
	if err != nil {
		return nil, fmt.Errorf("uploading files: %w", err)
	}
	if len(ids) != len(paths) {
		l.Warn("backend returned an unexpected number of file ids",
			"conversation_id", conversationID,
			"uploaded", len(paths),
			"file_ids", len(ids),
		)
	}

	var mu sync.Mutex
	outcomes := make([]Outcome, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		outcomes[i] = Outcome{FileID: id, Status: chat.FilePending}
		if i < len(paths) {
			outcomes[i].Path = paths[i]
		}
		index[id] = i
	}

	p := poller.New(c, opts.Poller,
		poller.WithLogger(l),
		poller.WithOnStatus(func(u poller.StatusUpdate) {
			mu.Lock()
			if i, ok := index[u.ResourceID]; ok {
				outcomes[i].Status = u.Status
				outcomes[i].ErrorMessage = u.ErrorMessage
			}
			mu.Unlock()

			if opts.OnStatus != nil {
				opts.OnStatus(u)
			}
		}),
	)

	for _, id := range ids {
		p.Start(id, conversationID, nil)
	}

	stop := context.AfterFunc(ctx, p.StopAll)
	p.Wait()
	stop()

	mu.Lock()
	defer mu.Unlock()
	out := make([]Outcome, len(outcomes))
	copy(out, outcomes)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// ProcessedIDs returns the ids of the files that finished processing.
func ProcessedIDs(outcomes []Outcome) []string {
	var ids []string
	for _, o := range outcomes {
		if o.Processed() {
			ids = append(ids, o.FileID)
		}
	}
	return ids
}
