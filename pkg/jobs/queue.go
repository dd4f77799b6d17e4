package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work. Payload carries the handler specific input.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ExhaustedFunc is invoked once a job has failed more than MaxRetries times.
type ExhaustedFunc func(context.Context, Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first backoff; each further attempt doubles it up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	OnExhausted   ExhaustedFunc
	Logger        *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines with bounded retries.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	inflight sync.WaitGroup
}

// NewQueue builds a queue; zero config values fall back to sane defaults.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = 30 * cfg.RetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels workers, drops pending retries and waits for in-flight handlers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.inflight.Wait()
	q.logger.Info("queue stopped")
}

// Depth reports the number of buffered jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Enqueue pushes a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(workerID, job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(workerID int, job Job, err error) {
	job.Attempt++
	fields := []zap.Field{
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	}
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job exceeded retries", fields...)
		if q.cfg.OnExhausted != nil {
			q.cfg.OnExhausted(q.ctx, job, err)
		}
		return
	}

	delay := q.backoff(job.Attempt)
	q.logger.Warn("job failed, retrying", append(fields, zap.Duration("delay", delay))...)

	q.inflight.Add(1)
	go func(j Job) {
		defer q.inflight.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= q.cfg.MaxRetryDelay {
			return q.cfg.MaxRetryDelay
		}
	}
	return delay
}
