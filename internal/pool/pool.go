// Package pool provides a fixed-size worker pool with a bounded FIFO
// queue. It is the only place blocking inference work is allowed to run;
// request handlers submit closures and await completion without tying up
// their own goroutine's logical flow.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"voxscribed/pkg/types"
)

const defaultQueueDepth = 32

// Config carries pool construction options.
type Config struct {
	// Workers is the hard concurrency ceiling (NumCPU if <= 0).
	Workers int
	// QueueDepth bounds queued-but-not-executing tasks (default 32).
	// Keep Workers x per-task internal threads within available cores;
	// oversubscription degrades throughput without failing loudly.
	QueueDepth int
	Log        zerolog.Logger
}

// Pending is the handle for one submitted task. Waiters observe
// completion; the task itself keeps running (and keeps its worker slot)
// even if every waiter gives up early.
type Pending struct {
	fn   func() error
	done chan struct{}
	err  error
}

// Wait blocks until the task finishes or ctx ends. A ctx error does not
// stop the task; the worker slot is reclaimed when fn returns.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done exposes the completion channel for select-based callers.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Pool executes submitted tasks on a fixed set of workers.
type Pool struct {
	tasks   chan *Pending
	workers int

	mu     sync.RWMutex
	closed bool

	busy atomic.Int32
	wg   sync.WaitGroup

	log zerolog.Logger
}

func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	p := &Pool{
		tasks:   make(chan *Pending, depth),
		workers: workers,
		log:     cfg.Log.With().Str("component", "pool").Logger(),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.log.Info().Int("workers", workers).Int("queue_depth", depth).Msg("worker pool started")
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.busy.Add(1)
		t.err = runTask(t.fn)
		// Slot is free before completion is observable, so Stats never
		// overcounts busy workers from a waiter's point of view.
		p.busy.Add(-1)
		close(t.done)
	}
}

func runTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn()
}

// Submit enqueues fn and returns immediately. When all workers are busy
// the task queues FIFO; a full queue rejects with a queue-full error so
// bursts cannot grow memory without bound.
func (p *Pool) Submit(fn func() error) (*Pending, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, poolClosedError{}
	}
	t := &Pending{fn: fn, done: make(chan struct{})}
	select {
	case p.tasks <- t:
		return t, nil
	default:
		return nil, queueFullError{depth: cap(p.tasks)}
	}
}

// Close stops accepting work, drains queued tasks, and waits for workers
// to finish. Safe to call once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Info().Msg("worker pool drained")
}

// Stats reports current utilization.
func (p *Pool) Stats() types.PoolStatus {
	return types.PoolStatus{
		Busy:          int(p.busy.Load()),
		Ceiling:       p.workers,
		Queued:        len(p.tasks),
		MaxQueueDepth: cap(p.tasks),
	}
}
