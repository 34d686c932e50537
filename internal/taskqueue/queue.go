// internal/taskqueue/queue.go

// Package taskqueue runs named background jobs on a bounded FIFO queue
// drained by a fixed pool of workers. A failing or panicking job is logged
// and never takes down a worker or the queue.
package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
)

// Job is one unit of background work. Run must close over inputs snapshotted
// at enqueue time; it never re-reads mutable state at execution time. On
// success the job writes its own result back through the state store; on
// failure it must leave records untouched so a later sweep can retry.
type Job struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

type Queue struct {
	jobs       chan Job
	workers    int
	jobTimeout time.Duration
	logger     logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func New(capacity, workers int, jobTimeout time.Duration, log logger.Logger) *Queue {
	return &Queue{
		jobs:       make(chan Job, capacity),
		workers:    workers,
		jobTimeout: jobTimeout,
		logger:     log.WithFields(map[string]interface{}{"component": "taskqueue"}),
	}
}

// Start launches the worker pool.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("task queue started", map[string]interface{}{
		"workers":  q.workers,
		"capacity": cap(q.jobs),
	})
}

// Submit enqueues a job, blocking while the queue is at capacity.
// It returns early when ctx is done. Work is never dropped silently: the job
// is either enqueued or an error is returned.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return stderrors.NewQueueFullError(job.Kind)
	}

	select {
	case q.jobs <- job:
		metrics.QueueDepth.Set(float64(len(q.jobs)))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit %s: %w", job.ID, ctx.Err())
	}
}

// TrySubmit enqueues a job without blocking. At capacity it returns
// QueueFull, which the interactive layer surfaces as "try again shortly".
func (q *Queue) TrySubmit(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return stderrors.NewQueueFullError(job.Kind)
	}

	select {
	case q.jobs <- job:
		metrics.QueueDepth.Set(float64(len(q.jobs)))
		return nil
	default:
		metrics.QueueSubmitsRejected.WithLabelValues(job.Kind).Inc()
		return stderrors.NewQueueFullError(job.Kind)
	}
}

// Depth reports the number of jobs currently waiting.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Stop rejects further submits, drains the queue, and waits for workers to
// finish or ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue stopped", nil)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task queue stop: %w", ctx.Err())
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log := q.logger.WithFields(map[string]interface{}{"worker": id})

	for job := range q.jobs {
		metrics.QueueDepth.Set(float64(len(q.jobs)))
		q.runJob(log, job)
	}
}

// runJob executes one job in its own failure domain. A panic is recovered
// and logged; the worker keeps pulling the next job.
func (q *Queue) runJob(log logger.Logger, job Job) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			metrics.QueueJobsFailed.WithLabelValues(job.Kind, "PANIC").Inc()
			log.Error("job panicked", map[string]interface{}{
				"jobId":   job.ID,
				"jobKind": job.Kind,
				"panic":   fmt.Sprintf("%v", r),
			})
		}
	}()

	ctx := context.Background()
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}

	log.Info("job started", map[string]interface{}{
		"jobId":   job.ID,
		"jobKind": job.Kind,
	})

	if err := job.Run(ctx); err != nil {
		metrics.QueueJobsFailed.WithLabelValues(job.Kind, string(stderrors.CodeOf(err))).Inc()
		log.Error("job failed", map[string]interface{}{
			"jobId":    job.ID,
			"jobKind":  job.Kind,
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return
	}

	metrics.QueueJobsCompleted.WithLabelValues(job.Kind).Inc()
	metrics.QueueJobDuration.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())
	log.Info("job completed", map[string]interface{}{
		"jobId":    job.ID,
		"jobKind":  job.Kind,
		"duration": time.Since(start).String(),
	})
}
