// internal/queue/queue.go

// Package queue is a best-effort background job dispatcher: submit a job, it
// runs at most once, and a failed job is not retried. Anything that needs
// retry semantics (reconciliation) must arrange its own, which the pipeline
// does through the repository staleness marker.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when a submission would block.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueClosed is returned after Shutdown.
	ErrQueueClosed = errors.New("job queue is closed")
)

// Job is one unit of background work.
type Job struct {
	ID   uuid.UUID
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs submitted jobs on a fixed worker pool.
type Dispatcher struct {
	jobs   chan Job
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity. Workers start immediately.
func NewDispatcher(workers, capacity int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		jobs:   make(chan Job, capacity),
		logger: logger,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker(i)
	}
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		logger := d.logger.With("job_id", job.ID, "job", job.Name, "worker", id)
		logger.Debug("Running job")
		// Jobs run against the background context: a job already accepted
		// should finish even while the process is draining for shutdown.
		if err := job.Run(context.Background()); err != nil {
			logger.Error("Job failed", "error", err)
			continue
		}
		logger.Debug("Job finished")
	}
}

// Submit enqueues fn for execution and returns its job ID. Never blocks: a
// full queue is an error, surfaced to the caller.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return uuid.Nil, ErrQueueClosed
	}

	job := Job{ID: uuid.New(), Name: name, Run: fn}
	select {
	case d.jobs <- job:
		return job.ID, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Shutdown stops accepting submissions and waits for queued jobs to drain.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
