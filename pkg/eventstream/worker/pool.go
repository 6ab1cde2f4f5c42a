// Package worker provides an asynchronous worker pool that moves event
// publishing off the question-answering hot path.
//
// Publishing to a broker can block for the length of a network round trip;
// the pool accepts events immediately and a fixed set of workers forward
// them to the wrapped eventstream.Publisher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/crmchat/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrClosed is returned when an event is submitted after Close.
var ErrClosed = errors.New("event pool is closed")

// Job is a single event waiting to be published. Exactly one field is set.
type Job struct {
	QueryAnswered *eventstream.QueryAnsweredEvent
	IndexBuilt    *eventstream.IndexBuiltEvent
}

func (j Job) eventType() string {
	switch {
	case j.QueryAnswered != nil:
		return j.QueryAnswered.EventType
	case j.IndexBuilt != nil:
		return j.IndexBuilt.EventType
	}
	return ""
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every event. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish call (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool is an eventstream.Publisher that queues events for its workers.
// A full queue drops the event rather than blocking the caller.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the pool is closed or the queue is full,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("event queued", "event_type", job.eventType())
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped", "event_type", job.eventType())
		return false
	}
}

// PublishQueryAnswered queues event. The context only applies to the enqueue.
func (p *Pool) PublishQueryAnswered(_ context.Context, event *eventstream.QueryAnsweredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.submit(Job{QueryAnswered: event})
}

// PublishIndexBuilt queues event.
func (p *Pool) PublishIndexBuilt(_ context.Context, event *eventstream.IndexBuiltEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.submit(Job{IndexBuilt: event})
}

func (p *Pool) submit(job Job) error {
	if p.Enqueue(job) {
		return nil
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return fmt.Errorf("event queue full, dropped %s", job.eventType())
}

// Close stops accepting events, waits for queued events to drain, then
// closes the wrapped publisher. Call this after the API server has stopped.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

// processJob publishes one event. Failures are logged and not retried.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	var err error
	switch {
	case job.QueryAnswered != nil:
		err = p.config.Publisher.PublishQueryAnswered(ctx, job.QueryAnswered)
	case job.IndexBuilt != nil:
		err = p.config.Publisher.PublishIndexBuilt(ctx, job.IndexBuilt)
	default:
		return
	}

	if err != nil {
		p.logger.Warn("async event publish failed",
			"event_type", job.eventType(),
			"error", err,
		)
		return
	}

	p.logger.Debug("event published", "event_type", job.eventType())
}

var _ eventstream.Publisher = (*Pool)(nil)
