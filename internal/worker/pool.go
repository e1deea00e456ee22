package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the event buffer cannot take another job.
	ErrQueueFull = errors.New("event queue full")
	// ErrPoolClosed is returned for events submitted after Shutdown.
	ErrPoolClosed = errors.New("event pool shut down")
)

// Publisher delivers one event to the broker.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type EventJob struct {
	Key     string
	Payload any
}

// Pool publishes domain events off the request path.
type Pool struct {
	jobs      chan EventJob
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(bufferSize int, publisher Publisher, logger *slog.Logger) *Pool {
	return &Pool{
		jobs:      make(chan EventJob, bufferSize),
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
}

func (p *Pool) Start(workerCount int) {
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.publisher.PublishJSON(ctx, job.Key, job.Payload)
		cancel()
		if err != nil {
			p.logger.Error("event publish failed",
				"routing_key", job.Key,
				"error", err,
			)
		}
	}
}

// Submit queues a job without blocking. It reports false when the buffer is
// full or the pool has shut down.
func (p *Pool) Submit(job EventJob) bool {
	return p.enqueue(job) == nil
}

// PublishJSON queues the event for a worker; ctx is not carried over since
// delivery happens after the caller has returned.
func (p *Pool) PublishJSON(_ context.Context, key string, v any) error {
	return p.enqueue(EventJob{Key: key, Payload: v})
}

func (p *Pool) enqueue(job EventJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be published.
// Calling it more than once is safe.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
