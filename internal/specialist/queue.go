package specialist

import (
	"context"
	"sync"

	"github.com/mossland/Algora-sub004/internal/types"
)

// TaskQueue decouples accepting work from executing it. Submit returns as
// soon as the job is queued; a bounded worker pool executes jobs with
// backpressure independent of how many tasks are logically pending, so one
// workflow suspended on a slow model call never blocks the others.
type TaskQueue interface {
	// Submit queues a job for execution. Blocks when the queue is at
	// capacity (backpressure) and fails only when the queue is stopped or
	// ctx is cancelled first.
	Submit(ctx context.Context, job func(ctx context.Context)) error

	// Stop drains the queue: no new jobs are accepted, queued jobs finish,
	// and Stop returns once every worker has exited.
	Stop()
}

// WorkerQueue is the channel-backed TaskQueue implementation.
type WorkerQueue struct {
	jobs   chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards closed. Submitters hold the read lock across the channel
	// send so Stop can only close the channel once no send is in flight.
	mu     sync.RWMutex
	closed bool
}

// NewWorkerQueue starts a queue with the given worker count and buffer
// capacity. Workers inherit baseCtx, so cancelling it aborts in-flight jobs.
func NewWorkerQueue(baseCtx context.Context, workers, capacity int) *WorkerQueue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = workers
	}

	ctx, cancel := context.WithCancel(baseCtx)
	q := &WorkerQueue{
		jobs:   make(chan func(ctx context.Context), capacity),
		ctx:    ctx,
		cancel: cancel,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}

	return q
}

func (q *WorkerQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		job(q.ctx)
	}
}

// Submit queues a job, blocking for space when the buffer is full.
func (q *WorkerQueue) Submit(ctx context.Context, job func(ctx context.Context)) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return types.NewError(types.SPECIALIST_QUEUE_CLOSED, "task queue is stopped")
	}

	// Workers keep draining until Stop closes the channel, so a blocked
	// send always makes progress while the read lock is held.
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains queued jobs and waits for workers to exit. Idempotent.
func (q *WorkerQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

// Depth returns the number of queued-but-unstarted jobs. Exposed for the
// KPI queue_depth health metric.
func (q *WorkerQueue) Depth() int {
	return len(q.jobs)
}

var _ TaskQueue = (*WorkerQueue)(nil)
