// Package poller tracks asynchronous server-side jobs, such as file
// ingestion, by polling a status endpoint with backoff until the job reaches
// a terminal status.
//
// Each resource gets its own job. Jobs are independent of each other, and a
// job's polls are strictly sequential: the next poll is only scheduled once
// the previous response has been handled.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/logger"
)

const (
	msgExhausted   = "file processing timed out"
	msgFetchFailed = "fetching file status failed"
)

// StatusFetcher looks up the status of one resource.
type StatusFetcher interface {
	FileStatus(ctx context.Context, id string) (*chat.FileStatus, error)
}

// StatusUpdate is delivered for every status a job observes, including the
// synthetic error status produced when a job gives up.
type StatusUpdate struct {
	ResourceID     string
	ConversationID string
	Status         chat.FileProcessingStatus
	ErrorMessage   string

	// Synthetic is set when the status was produced by the poller rather
	// than returned by the server.
	Synthetic bool
}

// Job is a point-in-time view of a polling job.
type Job struct {
	ResourceID     string
	ConversationID string
	Attempts       int
	Interval       time.Duration
	MaxRetries     int
	Active         bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithOnStatus sets the callback that receives every status update.
func WithOnStatus(fn func(StatusUpdate)) Option {
	return func(p *Poller) {
		p.onStatus = fn
	}
}

// Poller runs one polling job per resource id.
type Poller struct {
	fetcher  StatusFetcher
	config   Config
	logger   *slog.Logger
	onStatus func(StatusUpdate)

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

type job struct {
	resourceID     string
	conversationID string
	onComplete     func(success bool)
	cancel         context.CancelFunc

	// Guarded by Poller.mu.
	attempts int
	interval time.Duration
	active   bool
}

// New returns a Poller. Zero fields of cfg take their default values.
func New(fetcher StatusFetcher, cfg Config, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		config:  cfg.withDefaults(),
		jobs:    make(map[string]*job),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	return p
}

// Start begins polling resourceID right away. An active job for the same id
// is stopped first and replaced. onComplete, when set, is called once with
// true if the resource was processed and false otherwise; it is not called
// for jobs ended by Stop.
func (p *Poller) Start(resourceID, conversationID string, onComplete func(success bool)) {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		resourceID:     resourceID,
		conversationID: conversationID,
		onComplete:     onComplete,
		cancel:         cancel,
		interval:       p.config.InitialInterval,
		active:         true,
	}

	p.mu.Lock()
	if old, ok := p.jobs[resourceID]; ok {
		p.deactivate(old)
		p.logger.Debug("replacing poll job", "resource_id", resourceID)
	}
	p.jobs[resourceID] = j
	p.mu.Unlock()

	p.logger.Debug("poll job started", "resource_id", resourceID, "conversation_id", conversationID)

	p.wg.Add(1)
	go p.run(ctx, j)
}

// Stop cancels the job for resourceID. A response still in flight is
// discarded when it arrives.
func (p *Poller) Stop(resourceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if j, ok := p.jobs[resourceID]; ok {
		p.deactivate(j)
	}
}

// StopAll cancels every job.
func (p *Poller) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, j := range p.jobs {
		p.deactivate(j)
	}
}

// Wait blocks until every job has ended.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Active reports whether a job for resourceID is running.
func (p *Poller) Active(resourceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.jobs[resourceID]
	return ok
}

// Snapshot returns the current state of the job for resourceID.
func (p *Poller) Snapshot(resourceID string) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.jobs[resourceID]
	if !ok {
		return Job{}, false
	}
	return Job{
		ResourceID:     j.resourceID,
		ConversationID: j.conversationID,
		Attempts:       j.attempts,
		Interval:       j.interval,
		MaxRetries:     p.config.MaxRetries,
		Active:         j.active,
	}, true
}

// deactivate must be called with p.mu held.
func (p *Poller) deactivate(j *job) {
	j.active = false
	j.cancel()
	if p.jobs[j.resourceID] == j {
		delete(p.jobs, j.resourceID)
	}
}

func (p *Poller) run(ctx context.Context, j *job) {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next, again := p.poll(ctx, j)
		if !again {
			return
		}
		timer.Reset(next)
	}
}

// poll performs one tick and reports the wait before the next one.
func (p *Poller) poll(ctx context.Context, j *job) (time.Duration, bool) {
	p.mu.Lock()
	if !j.active {
		p.mu.Unlock()
		return 0, false
	}
	attempts := j.attempts
	p.mu.Unlock()

	if attempts >= p.config.MaxRetries {
		p.logger.Warn("poll retries exhausted", "resource_id", j.resourceID, "attempts", attempts)
		p.finish(j, StatusUpdate{Status: chat.FileError, ErrorMessage: msgExhausted, Synthetic: true})
		return 0, false
	}

	st, err := p.fetcher.FileStatus(ctx, j.resourceID)

	p.mu.Lock()
	if !j.active {
		p.mu.Unlock()
		p.logger.Debug("discarding response for stopped job", "resource_id", j.resourceID)
		return 0, false
	}

	if err != nil {
		j.attempts++
		if j.attempts < p.config.MaxRetries {
			j.interval = p.config.FailureInterval(j.interval)
			next, failures := j.interval, j.attempts
			p.mu.Unlock()

			p.logger.Warn("polling file status failed",
				"resource_id", j.resourceID,
				"attempts", failures,
				"next", next,
				"error", err,
			)
			return next, true
		}
		p.mu.Unlock()

		p.logger.Error("giving up on file status", "resource_id", j.resourceID, "error", err)
		p.finish(j, StatusUpdate{
			Status:       chat.FileError,
			ErrorMessage: fmt.Sprintf("%s: %v", msgFetchFailed, err),
			Synthetic:    true,
		})
		return 0, false
	}
	p.mu.Unlock()

	update := StatusUpdate{Status: st.Status, ErrorMessage: st.ErrorMessage}
	if st.Status.IsTerminal() {
		p.finish(j, update)
		return 0, false
	}

	p.deliver(j, update)

	p.mu.Lock()
	j.attempts++
	j.interval = p.config.NextInterval(j.interval, j.attempts)
	next, polls := j.interval, j.attempts
	p.mu.Unlock()

	p.logger.Debug("file still processing",
		"resource_id", j.resourceID,
		"status", st.Status,
		"attempts", polls,
		"next", next,
	)
	return next, true
}

// deliver hands update to the status callback if the job is still active.
func (p *Poller) deliver(j *job, update StatusUpdate) bool {
	p.mu.Lock()
	active := j.active
	p.mu.Unlock()
	if !active {
		return false
	}

	update.ResourceID = j.resourceID
	update.ConversationID = j.conversationID
	if p.onStatus != nil {
		p.onStatus(update)
	}
	return true
}

// finish delivers a terminal update, removes the job and reports completion.
func (p *Poller) finish(j *job, update StatusUpdate) {
	if !p.deliver(j, update) {
		return
	}

	p.mu.Lock()
	if !j.active {
		p.mu.Unlock()
		return
	}
	p.deactivate(j)
	p.mu.Unlock()

	p.logger.Info("poll job finished",
		"resource_id", j.resourceID,
		"status", update.Status,
		"synthetic", update.Synthetic,
	)

	if j.onComplete != nil {
		j.onComplete(update.Status == chat.FileProcessed)
	}
}
