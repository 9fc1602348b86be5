// Package workers provides a small worker pool for running independent jobs
// concurrently. Jobs record their own outcome; the pool only schedules them
// and waits for completion.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anstrom/nmap-parse/internal/logging"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for logging.
	Type() string
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the maximum number of jobs waiting for a worker.
	QueueSize int
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config    Config
	jobs      chan Job
	wg        sync.WaitGroup
	ctx       context.Context
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
}

// worker represents a single worker goroutine.
type worker struct {
	id   int
	pool *Pool
}

// New creates a new worker pool bound to ctx. Canceling ctx stops Submit
// from queuing; jobs already queued still run and see the canceled context.
func New(ctx context.Context, config Config) *Pool {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	return &Pool{
		config: config,
		jobs:   make(chan Job, config.QueueSize),
		ctx:    ctx,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		logging.Debug("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize)

		for i := 0; i < p.config.Size; i++ {
			w := &worker{id: i, pool: p}
			p.wg.Add(1)
			go w.run()
		}
	})
}

// Submit queues a job, blocking while the queue is full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		logging.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Shutdown stops accepting jobs and waits until every queued job has run.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()

		// Workers only exist once started; drain the queue ourselves otherwise.
		p.Start()
		p.wg.Wait()
		logging.Debug("Worker pool shutdown completed")
	})
}

// run executes the worker loop until the job queue is closed.
func (w *worker) run() {
	defer w.pool.wg.Done()

	for job := range w.pool.jobs {
		w.executeJob(job)
	}
}

// executeJob executes a single job and logs its outcome.
func (w *worker) executeJob(job Job) {
	start := time.Now()
	err := job.Execute(w.pool.ctx)
	duration := time.Since(start)

	if err != nil {
		logging.Debug("Job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"duration", duration,
			"worker_id", w.id,
			"error", err)
		return
	}

	logging.Debug("Job completed successfully",
		"job_id", job.ID(),
		"job_type", job.Type(),
		"duration", duration,
		"worker_id", w.id)
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job that runs fn.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{
		id:      id,
		jobType: jobType,
		fn:      fn,
	}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
