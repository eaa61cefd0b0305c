// Package worker runs the long-lived control loops of the service, one
// goroutine per loop, and stops them together.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/camctl/pkg/logger"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	defaultRestartDelay    = time.Second
)

// Runner is a loop that runs until ctx is canceled.
type Runner interface {
	Run(ctx context.Context)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context) { f(ctx) }

// worker owns one goroutine.
type worker struct {
	name   string
	runner Runner
	done   chan struct{}
}

// Pool supervises a fixed set of named loops. A loop that panics is logged
// and started again; a loop that returns is done.
type Pool struct {
	mu      sync.Mutex
	workers []*worker
	started bool
	cancel  context.CancelFunc

	shutdownTimeout time.Duration
	restartDelay    time.Duration
	logger          logger.Logger
}

// NewPool creates an empty pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		shutdownTimeout: defaultShutdownTimeout,
		restartDelay:    defaultRestartDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Add registers a loop. Loops added after Start are rejected.
func (p *Pool) Add(name string, r Runner) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("%w: %s", ErrStarted, name)
	}
	p.workers = append(p.workers, &worker{name: name, runner: r, done: make(chan struct{})})
	return nil
}

// Len returns the number of registered loops.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Start runs every loop in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go p.run(ctx, w)
	}
	p.started = true
	p.logger.Info(ctx, "workers started", logger.Int("count", len(p.workers)))
}

func (p *Pool) run(ctx context.Context, w *worker) {
	defer close(w.done)
	for {
		if !p.runOnce(ctx, w) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.restartDelay):
		}
	}
}

// runOnce reports whether the loop panicked and should be restarted.
func (p *Pool) runOnce(ctx context.Context, w *worker) (restart bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "worker panicked, restarting",
				logger.String("worker", w.name), logger.Any("panic", r))
			restart = true
		}
	}()
	w.runner.Run(ctx)
	return false
}

// Shutdown cancels every loop and waits for them to return.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	workers := append([]*worker(nil), p.workers...)
	p.started = false
	p.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var late []string
	for _, w := range workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			late = append(late, w.name)
		}
	}
	if len(late) > 0 {
		p.logger.Warn(ctx, "worker shutdown timed out", logger.Any("workers", late))
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, late)
	}
	return nil
}
