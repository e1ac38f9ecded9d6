// Package worker provides an asynchronous worker pool for ingesting content
// into the memory orchestrator.
//
// The pool decouples admission and persistence from callers' hot paths:
// agents hand observations off and continue while the pool classifies,
// gates, and stores them in the background.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	// A single worker by default keeps writes serialized through the
	// admission gate, so near-duplicate observations submitted together
	// still see each other during the novelty comparison.
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Content string
	Opts    memory.RememberOptions
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Memory is the orchestrator jobs are written to.
	Memory *memory.Memory

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes memory writes asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Memory == nil {
		return nil, fmt.Errorf("worker pool requires a memory orchestrator")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("scope", job.Opts.Scope),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("scope", job.Opts.Scope),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown before closing the orchestrator.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("memory worker stopped", zap.Uint("worker_id", id))
}

// processJob writes one observation through the orchestrator.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	result, err := p.config.Memory.Remember(ctx, job.Content, job.Opts)
	if err != nil {
		p.logger.Error("async memory write failed",
			zap.String("scope", job.Opts.Scope),
			zap.Error(err),
		)
		return
	}

	if !result.Stored {
		p.logger.Debug("observation skipped",
			zap.String("tier", string(result.Tier)),
			zap.Float64("score", result.Decision.Score),
		)
		return
	}

	p.logger.Info("observation stored",
		zap.String("record_id", result.Record.ID),
		zap.String("tier", string(result.Tier)),
	)
}
