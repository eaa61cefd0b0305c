// Package guard isolates remote-call failures so that a control loop keeps
// running when a single schedule fetch or camera command fails.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
)

// Guard wraps blocks of remote-call code for one resource (an agent id or a camera url).
type Guard struct {
	resource string
	message  string
	sink     metrics.Sink
	logger   logger.Logger
}

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithSink sets the metrics sink failures are counted in.
func WithSink(sink metrics.Sink) Option {
	return func(g *Guard) {
		if sink != nil {
			g.sink = sink
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l logger.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Guard. message is logged with every swallowed failure.
func New(resource, message string, opts ...Option) *Guard {
	g := &Guard{
		resource: resource,
		message:  message,
		sink:     metrics.Discard{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("guard")
	}
	return g
}

// Resource returns the resource label used for metrics.
func (g *Guard) Resource() string { return g.resource }

// Do runs fn and swallows whatever it returns or panics with.
//
// Transport-class failures are logged at warn level, anything else at error
// level; both are counted in request_errors{resource,type}. Cancellation of
// ctx is not a failure. The returned error is informational only.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
			g.report(ctx, err, faults.KindPanic)
		}
	}()

	err = fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	g.report(ctx, err, faults.KindOf(err))
	return err
}

func (g *Guard) report(ctx context.Context, err error, kind string) {
	fields := []logger.Field{
		logger.String("resource", g.resource),
		logger.String("type", kind),
		logger.Error(err),
	}
	if faults.Transport(err) {
		g.logger.Warn(ctx, g.message, fields...)
	} else {
		g.logger.Error(ctx, g.message, fields...)
	}
	g.sink.RequestError(g.resource, kind)
}

type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

// Kind implements faults.Kinded.
func (p *panicError) Kind() string { return faults.KindPanic }
