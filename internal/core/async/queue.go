// Package async runs coordinator state machines on a bounded worker pool.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docuflow/textract-export/internal/core"
)

// Job is one uploaded object awaiting processing.
type Job struct {
	ObjectKey string
}

// DocumentQueue fans uploaded objects out to workers. One document's
// failure never aborts its siblings; each job gets its own timeout, which
// doubles as the coordinator's polling time budget.
type DocumentQueue struct {
	coord   *core.Coordinator
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*DocumentQueue)

func WithWorkers(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *DocumentQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewDocumentQueue(coord *core.Coordinator, logger *slog.Logger, opts ...Option) *DocumentQueue {
	q := &DocumentQueue{
		coord:   coord,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *DocumentQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.coord.ProcessObject(ctx, job.ObjectKey)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "object_key", job.ObjectKey, "error", err)
					} else {
						q.logger.Info("processed document", "worker_id", workerID, "object_key", job.ObjectKey)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue hands one uploaded object to the workers. A full buffer blocks
// until a worker frees a slot or ctx ends. Producers share the lock, so a
// blocked send never stalls other producers; Shutdown's exclusive lock
// waits out in-flight sends before closing the channel.
func (q *DocumentQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "object_key", job.ObjectKey)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document", "object_key", job.ObjectKey)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "object_key", job.ObjectKey)
	select {
	case q.ch <- job:
		q.logger.Info("queued document", "object_key", job.ObjectKey)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *DocumentQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
