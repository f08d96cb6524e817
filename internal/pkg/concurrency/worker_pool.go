package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"digestCracker/internal/core/domain"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// WorkerPool runs exactly one task per worker and joins them all. A worker
// that returns an error or panics fails the whole run.
type WorkerPool struct {
	workers    []*Worker
	numWorkers int
	metrics    *PoolMetrics
	startTime  time.Time
	mu         sync.RWMutex
}

type Worker struct {
	id        int
	metrics   *WorkerMetrics
	attempts  atomic.Int64
	isWorking atomic.Bool
}

// Task is the body a worker executes. It reports hashing work through
// Worker.AddAttempts.
type Task func(ctx context.Context, w *Worker) (domain.SearchOutcome, error)

type Result struct {
	WorkerID int
	Outcome  domain.SearchOutcome
	Duration time.Duration
}

type PoolMetrics struct {
	ActiveWorkers  int
	CompletedTasks int64
	FailedTasks    int64
	TotalDuration  time.Duration
	AverageLatency time.Duration
	mu             sync.RWMutex
}

type WorkerMetrics struct {
	TasksCompleted int64
	TasksFailed    int64
	TotalDuration  time.Duration
	LastActive     time.Time
	mu             sync.RWMutex
}

func NewWorkerPool(numWorkers int) (*WorkerPool, error) {
	if numWorkers < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidWorkerCount, "%d workers", numWorkers)
	}

	pool := &WorkerPool{
		workers:    make([]*Worker, numWorkers),
		numWorkers: numWorkers,
		metrics:    &PoolMetrics{},
	}

	for i := 0; i < numWorkers; i++ {
		pool.workers[i] = &Worker{
			id: i,
			metrics: &WorkerMetrics{
				LastActive: time.Now(),
			},
		}
	}

	return pool, nil
}

func (p *WorkerPool) Size() int {
	return p.numWorkers
}

// Run starts task on every worker and waits for all of them. Results are
// indexed by worker id regardless of completion order.
func (p *WorkerPool) Run(ctx context.Context, task Task) ([]Result, error) {
	p.mu.Lock()
	p.startTime = time.Now()
	p.mu.Unlock()

	results := make([]Result, p.numWorkers)
	g, gctx := errgroup.WithContext(ctx)

	for _, worker := range p.workers {
		w := worker
		g.Go(func() error {
			outcome, duration, err := w.execute(gctx, task)
			w.updateMetrics(err == nil, duration)
			if err != nil {
				return err
			}
			results[w.id] = Result{
				WorkerID: w.id,
				Outcome:  outcome,
				Duration: duration,
			}
			return nil
		})
	}

	err := g.Wait()
	p.updatePoolMetrics()
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Worker) execute(ctx context.Context, task Task) (outcome domain.SearchOutcome, duration time.Duration, err error) {
	w.isWorking.Store(true)
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Exhausted()
			err = errors.Wrap(domain.ErrWorkerFault, fmt.Sprintf("worker %d: %v", w.id, r))
		}
		duration = time.Since(startTime)
		w.isWorking.Store(false)
	}()

	outcome, err = task(ctx, w)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrapf(err, "worker %d", w.id)
	}
	return outcome, duration, err
}

func (w *Worker) ID() int {
	return w.id
}

func (w *Worker) AddAttempts(n int64) {
	w.attempts.Add(n)
}

func (w *Worker) Attempts() int64 {
	return w.attempts.Load()
}

func (w *Worker) updateMetrics(success bool, duration time.Duration) {
	w.metrics.mu.Lock()
	defer w.metrics.mu.Unlock()

	if success {
		w.metrics.TasksCompleted++
	} else {
		w.metrics.TasksFailed++
	}
	w.metrics.TotalDuration += duration
	w.metrics.LastActive = time.Now()
}

// Attempts is the number of candidates hashed by all workers so far. It is
// safe to call while Run is in progress.
func (p *WorkerPool) Attempts() int64 {
	var total int64
	for _, w := range p.workers {
		total += w.Attempts()
	}
	return total
}

func (p *WorkerPool) ActiveWorkers() int {
	active := 0
	for _, w := range p.workers {
		if w.isWorking.Load() {
			active++
		}
	}
	return active
}

func (p *WorkerPool) GetMetrics() domain.ResourceMetrics {
	return domain.ResourceMetrics{
		ActiveThreads:  p.ActiveWorkers(),
		AttemptsPerSec: p.calculateAttemptsPerSecond(),
		TotalAttempts:  p.Attempts(),
		LastUpdated:    time.Now(),
	}
}

// TaskCounts reports completed and failed worker tasks as of the last Run.
func (p *WorkerPool) TaskCounts() (completed, failed int64) {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return p.metrics.CompletedTasks, p.metrics.FailedTasks
}

func (p *WorkerPool) updatePoolMetrics() {
	var totalCompleted, totalFailed int64
	var totalDuration time.Duration

	for _, worker := range p.workers {
		worker.metrics.mu.RLock()
		totalCompleted += worker.metrics.TasksCompleted
		totalFailed += worker.metrics.TasksFailed
		totalDuration += worker.metrics.TotalDuration
		worker.metrics.mu.RUnlock()
	}

	p.metrics.mu.Lock()
	p.metrics.ActiveWorkers = p.ActiveWorkers()
	p.metrics.CompletedTasks = totalCompleted
	p.metrics.FailedTasks = totalFailed
	p.metrics.TotalDuration = totalDuration
	if totalCompleted > 0 {
		p.metrics.AverageLatency = totalDuration / time.Duration(totalCompleted)
	}
	p.metrics.mu.Unlock()
}

func (p *WorkerPool) calculateAttemptsPerSecond() int64 {
	p.mu.RLock()
	start := p.startTime
	p.mu.RUnlock()

	if start.IsZero() {
		return 0
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(p.Attempts()) / elapsed)
}
