package worker

import (
	"time"

	"github.com/okian/camctl/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for each worker.
func WithShutdownTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.shutdownTimeout = d
		}
	}
}

// WithRestartDelay sets the pause before a worker whose loop panicked is run again.
func WithRestartDelay(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.restartDelay = d
		}
	}
}
