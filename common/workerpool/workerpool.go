// Package workerpool implements a generic resizable worker pool that
// executes submitted jobs on a bounded number of goroutines, applying an
// exponential backoff delay between jobs when they keep failing.
//
// Resizing the pool to a single worker turns it into a strict FIFO, single
// goroutine executor, which is how the network map parameter processor
// uses it to serialize all state mutation onto one goroutine.
package workerpool

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffConfig configures the delay applied between job executions after
// a run of failures.
type BackoffConfig struct {
	MinTimeout time.Duration
	MaxTimeout time.Duration
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Backoff configures the failure backoff. If nil, no backoff is applied
	// between failing jobs.
	Backoff *BackoffConfig
}

// poolBackoff tracks the current backoff delay across consecutive job
// failures, growing exponentially up to MaxTimeout and resetting to zero
// on the first success.
type poolBackoff struct {
	sync.Mutex

	cfg     *BackoffConfig
	current time.Duration
}

func (b *poolBackoff) Timeout() time.Duration {
	b.Lock()
	defer b.Unlock()
	return b.current
}

func (b *poolBackoff) Success() {
	b.Lock()
	defer b.Unlock()
	b.current = 0
}

func (b *poolBackoff) Failure() time.Duration {
	b.Lock()
	defer b.Unlock()

	if b.cfg == nil {
		return 0
	}

	if b.current == 0 {
		b.current = b.cfg.MinTimeout
	} else {
		b.current = time.Duration(float64(b.current) * backoff.DefaultMultiplier)
	}
	if b.current > b.cfg.MaxTimeout {
		b.current = b.cfg.MaxTimeout
	}

	return b.current
}

// job is a unit of work submitted to the pool, with a channel signaled
// once it has finished executing.
type job struct {
	fn   func() error
	done chan error
}

// Pool is a resizable pool of worker goroutines draining a shared job
// queue.
type Pool struct {
	name string

	backoff poolBackoff

	queue chan *job

	mu      sync.Mutex
	quit    []chan struct{}
	workers int
}

// New creates a new, initially empty, worker pool.
func New(name string, cfg *PoolConfig) *Pool {
	p := &Pool{
		name:  name,
		queue: make(chan *job, 64),
	}
	if cfg != nil {
		p.backoff.cfg = cfg.Backoff
	}
	return p
}

// Resize changes the number of active worker goroutines to n.
func (p *Pool) Resize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.workers < n {
		quit := make(chan struct{})
		p.quit = append(p.quit, quit)
		p.workers++
		go p.worker(quit)
	}
	for p.workers > n {
		last := len(p.quit) - 1
		close(p.quit[last])
		p.quit = p.quit[:last]
		p.workers--
	}
}

// Submit enqueues fn for execution and returns a channel that receives its
// error result once it has run.
func (p *Pool) Submit(fn func() error) <-chan error {
	j := &job{fn: fn, done: make(chan error, 1)}
	p.queue <- j
	return j.done
}

func (p *Pool) worker(quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case j := <-p.queue:
			if d := p.backoff.Timeout(); d > 0 {
				time.Sleep(d)
			}

			err := j.fn()
			if err != nil {
				p.backoff.Failure()
			} else {
				p.backoff.Success()
			}
			j.done <- err
		}
	}
}
