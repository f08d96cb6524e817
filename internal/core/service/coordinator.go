package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"digestCracker/internal/core/algorithm"
	"digestCracker/internal/core/domain"
	"digestCracker/internal/pkg/concurrency"
	"digestCracker/internal/pkg/logging"
	"digestCracker/internal/port"

	"github.com/pkg/errors"
)

// attemptBatch is how many candidates a worker hashes between progress
// reports and context checks.
const attemptBatch = 4096

type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateExhausted State = "EXHAUSTED"
	StateFailed    State = "FAILED"
)

// Coordinator runs one search at a time over a candidate space. Build a new
// one per search; it is not meant to be shared between concurrent searches.
type Coordinator struct {
	space       algorithm.Space
	hashService port.HashService
	policy      domain.CompletionPolicy

	mu          sync.RWMutex
	state       State
	pool        *concurrency.WorkerPool
	seqAttempts atomic.Int64
	elapsed     time.Duration
}

type CoordinatorOption func(*Coordinator)

func WithSpace(space algorithm.Space) CoordinatorOption {
	return func(c *Coordinator) {
		c.space = space
	}
}

func WithPolicy(policy domain.CompletionPolicy) CoordinatorOption {
	return func(c *Coordinator) {
		c.policy = policy
	}
}

func NewCoordinator(hashService port.HashService, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		space:       algorithm.DefaultSpace(),
		hashService: hashService,
		policy:      domain.PolicyRunToCompletion,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchSequential scans the whole space in order on the calling goroutine
// and stops at the first match.
func (c *Coordinator) SearchSequential(ctx context.Context, target string, hashType domain.HashType) (domain.SearchOutcome, error) {
	match, err := c.hashService.Matcher(target, hashType)
	if err != nil {
		return domain.Exhausted(), err
	}

	start := c.begin(nil)
	outcome, err := scan(ctx, c.space.Cursor(0, 1), match, func(n int64) { c.seqAttempts.Add(n) }, true, nil)
	c.finish(start, outcome, err)

	logging.Debugf("sequential search over %d candidates: %s", c.space.Size(), outcome)
	return outcome, err
}

// SearchParallel stripes the space over numWorkers goroutines. Under the
// run-to-completion policy every worker scans its whole stripe even after a
// match elsewhere; outcomes are then resolved in worker-id order.
func (c *Coordinator) SearchParallel(ctx context.Context, target string, hashType domain.HashType, numWorkers int) (domain.SearchOutcome, error) {
	match, err := c.hashService.Matcher(target, hashType)
	if err != nil {
		return domain.Exhausted(), err
	}
	parts, err := algorithm.NewPartitioner(c.space).Partition(numWorkers)
	if err != nil {
		return domain.Exhausted(), err
	}
	pool, err := concurrency.NewWorkerPool(numWorkers)
	if err != nil {
		return domain.Exhausted(), err
	}

	eager := c.policy == domain.PolicyEagerCancel
	var stopped atomic.Bool
	var stop *atomic.Bool
	if eager {
		stop = &stopped
	}

	start := c.begin(pool)
	results, err := pool.Run(ctx, func(ctx context.Context, w *concurrency.Worker) (domain.SearchOutcome, error) {
		part := parts[w.ID()]
		if part.Empty() {
			return domain.Exhausted(), nil
		}
		outcome, err := scan(ctx, part.Cursor(), match, w.AddAttempts, eager, stop)
		if eager && outcome.Found {
			stopped.Store(true)
		}
		logging.Debugf("worker %d/%d scanned %d candidates: %s", w.ID(), numWorkers, w.Attempts(), outcome)
		return outcome, err
	})
	if err != nil {
		c.finish(start, domain.Exhausted(), err)
		return domain.Exhausted(), err
	}

	outcome := resolve(results)
	c.finish(start, outcome, nil)
	return outcome, nil
}

// resolve returns the first Found outcome in worker-id order.
func resolve(results []concurrency.Result) domain.SearchOutcome {
	for _, r := range results {
		if r.Outcome.Found {
			return r.Outcome
		}
	}
	return domain.Exhausted()
}

// scan walks the cursor and hashes every candidate it yields. With
// stopOnMatch false it keeps hashing after the first match and still
// reports that first match.
func scan(
	ctx context.Context,
	cursor *algorithm.Cursor,
	match func([]byte) bool,
	report func(int64),
	stopOnMatch bool,
	stop *atomic.Bool,
) (domain.SearchOutcome, error) {
	outcome := domain.Exhausted()
	var pending int64

	for cursor.Next() {
		pending++
		if pending == attemptBatch {
			report(pending)
			pending = 0
			if err := ctx.Err(); err != nil {
				return outcome, err
			}
			if stop != nil && stop.Load() {
				return outcome, nil
			}
		}

		if match(cursor.Candidate()) && !outcome.Found {
			outcome = domain.Found(string(cursor.Candidate()))
			if stopOnMatch {
				break
			}
		}
	}

	report(pending)
	return outcome, nil
}

func (c *Coordinator) begin(pool *concurrency.WorkerPool) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRunning
	c.pool = pool
	c.seqAttempts.Store(0)
	c.elapsed = 0
	return time.Now()
}

func (c *Coordinator) finish(start time.Time, outcome domain.SearchOutcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = time.Since(start)
	switch {
	case err != nil:
		c.state = StateFailed
	case outcome.Found:
		c.state = StateSucceeded
	default:
		c.state = StateExhausted
	}
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Elapsed is the wall-clock duration of the last finished search.
func (c *Coordinator) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Attempts counts candidates hashed so far in the current or last search.
func (c *Coordinator) Attempts() int64 {
	c.mu.RLock()
	pool := c.pool
	c.mu.RUnlock()
	if pool != nil {
		return pool.Attempts()
	}
	return c.seqAttempts.Load()
}

func (c *Coordinator) ActiveWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pool != nil {
		return c.pool.ActiveWorkers()
	}
	if c.state == StateRunning {
		return 1
	}
	return 0
}

func (c *Coordinator) Space() algorithm.Space {
	return c.space
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
