// Package worker provides an asynchronous worker pool that persists completed
// chat turns using the provided storage.Driver and announces them on the
// provided eventstream.Publisher.
//
// The pool decouples storage from the interactive stream so a slow database
// never delays the next prompt.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/turntable/pkg/eventstream"
	"github.com/papercomputeco/turntable/pkg/logger"
	"github.com/papercomputeco/turntable/pkg/storage"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting rows.
	Driver storage.Driver

	// Publisher optionally announces persisted turns.
	Publisher eventstream.Publisher

	// Source is stamped on every published event.
	Source eventstream.EventSource

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation_id", job.ConversationID,
			"token", job.Token,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation_id", job.ConversationID,
			"token", job.Token,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the turn's rows and publishes the completion event.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	rows := job.Rows()
	if len(rows) == 0 {
		p.logger.Warn("skipping empty turn", "conversation_id", job.ConversationID)
		return
	}

	inserted, err := p.config.Driver.PutRows(ctx, job.ConversationID, rows)
	if err != nil {
		p.logger.Error("async turn storage failed",
			"conversation_id", job.ConversationID,
			"error", err,
		)
		return
	}

	p.logger.Info("turn stored",
		"conversation_id", job.ConversationID,
		"turn_id", job.TurnID(),
		"new_rows", inserted,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewTurnCompletedEvent(p.source(job), job.meta(inserted), rows)
	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("failed to publish turn event",
			"conversation_id", job.ConversationID,
			"error", err,
		)
	}
}

func (p *Pool) source(job Job) eventstream.EventSource {
	src := p.config.Source
	if job.Provider != "" {
		src.Provider = job.Provider
	}
	if job.Model != "" {
		src.Model = job.Model
	}
	return src
}
