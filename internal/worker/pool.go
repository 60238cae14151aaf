package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type queued struct {
	seq int
	job Job
}

// Pool runs jobs on a fixed number of workers.
// Cancelling the parent context stops the workers. Wait returns results in submission order.
type Pool struct {
	workers    int
	jobQueue   chan queued
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu      sync.Mutex
	results []Result // indexed by submission order; nil until the job finishes
}

// NewPool creates a pool bound to parent
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queued, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := q.job.Execute(p.ctx)
			p.mu.Lock()
			p.results[q.seq] = result
			p.mu.Unlock()
		}
	}
}

// Submit queues a job, blocking while the queue is full.
// It returns false when the pool has been cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	seq := len(p.results)
	p.results = append(p.results, nil)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queued{seq: seq, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns results in submission order.
// Jobs dropped by cancellation have no result.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	defer p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, 0, len(p.results))
	for _, r := range p.results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Run executes jobs on a fresh pool and returns their results in order.
// A cancelled parent returns a partial result set with the context error.
func Run(ctx context.Context, workers int, jobs []Job) ([]Result, error) {
	if len(jobs) == 0 {
		return []Result{}, nil
	}

	pool := NewPool(ctx, min(workers, len(jobs)))
	pool.Start()
	for _, job := range jobs {
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()
	if len(results) < len(jobs) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		return results, context.Canceled
	}
	return results, nil
}
