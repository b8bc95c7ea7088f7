package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	dexlog "github.com/EasterCompany/dex-leveling-service/log"
)

var ErrStopped = errors.New("worker pool stopped")

// Job is a unit of work run by the pool.
type Job func(ctx context.Context)

// WorkerPool manages a pool of workers and a queue of jobs.
type WorkerPool struct {
	jobs       chan Job
	quit       chan struct{}
	maxWorkers int
	logger     *slog.Logger

	mu      sync.RWMutex
	ctx     context.Context
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// New creates a new WorkerPool.
func New(maxWorkers, queueSize int, logger *slog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		jobs:       make(chan Job, queueSize),
		quit:       make(chan struct{}),
		maxWorkers: maxWorkers,
		logger:     dexlog.Named(logger, "worker"),
	}
}

// Start launches the workers. Jobs receive ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started || wp.stopped {
		return
	}
	wp.started = true
	wp.ctx = ctx
	for i := 1; i <= wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues job, blocking while the queue is full.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop waits for the workers to exit and runs any jobs still queued, so
// callers waiting on submitted work are always released.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.quit)
	ctx := wp.ctx
	wp.mu.Unlock()

	wp.wg.Wait()
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case job := <-wp.jobs:
			wp.run(ctx, 0, job)
		default:
			return
		}
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.quit:
			return
		case job := <-wp.jobs:
			wp.run(wp.ctx, id, job)
		}
	}
}

func (wp *WorkerPool) run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("job panicked", "worker", id, dexlog.Err(fmt.Errorf("%v", r)))
		}
	}()
	job(ctx)
}
