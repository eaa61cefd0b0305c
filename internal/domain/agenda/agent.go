// Package agenda caches the upcoming recordings of one capture agent.
package agenda

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/camctl/internal/domain/guard"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
)

const (
	// DefaultCutoff is how far ahead the schedule is fetched.
	DefaultCutoff = 7 * 24 * time.Hour
	// DefaultUpdateFrequency is the refresh interval of Run.
	DefaultUpdateFrequency = 2 * time.Minute
)

// Source fetches the events of an agent starting before cutoff.
type Source interface {
	Fetch(ctx context.Context, agentID string, cutoff time.Time) ([]model.Event, error)
}

// Agent owns the event list of one venue. It is written by a single refresh
// loop and read lock-free by any number of cameras.
type Agent struct {
	id       string
	source   Source
	cutoff   time.Duration
	every    time.Duration
	now      func() time.Time
	sink     metrics.Sink
	logger   logger.Logger
	guard    *guard.Guard
	events   atomic.Pointer[[]model.Event]
	updated  atomic.Pointer[time.Time]
	ready    chan struct{}
	markOnce sync.Once
}

// Option applies a configuration option to the Agent.
type Option func(*Agent)

// WithCutoff sets how far ahead events are fetched.
func WithCutoff(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.cutoff = d
		}
	}
}

// WithUpdateFrequency sets the refresh interval used by Run.
func WithUpdateFrequency(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.every = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSink sets the metrics sink.
func WithSink(sink metrics.Sink) Option {
	return func(a *Agent) {
		if sink != nil {
			a.sink = sink
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an uninitialized Agent for id.
func New(id string, source Source, opts ...Option) *Agent {
	a := &Agent{
		id:     id,
		source: source,
		cutoff: DefaultCutoff,
		every:  DefaultUpdateFrequency,
		now:    time.Now,
		sink:   metrics.Discard{},
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("agenda")
	}
	a.logger = a.logger.With(logger.String("agent", id))
	a.guard = guard.New(id, "could not update calendar",
		guard.WithSink(a.sink), guard.WithLogger(a.logger))
	empty := []model.Event{}
	a.events.Store(&empty)
	return a
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.id }

// Refresh replaces the cached events with a fresh copy from the source.
// On failure the previous events stay in place.
func (a *Agent) Refresh(ctx context.Context) error {
	now := a.now()
	fetched, err := a.source.Fetch(ctx, a.id, now.Add(a.cutoff))
	if err != nil {
		return err
	}

	events := make([]model.Event, 0, len(fetched))
	for _, ev := range fetched {
		if ev.Over(now) {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	a.events.Store(&events)
	a.updated.Store(&now)
	a.markOnce.Do(func() { close(a.ready) })
	a.sink.CalendarUpdated(a.id, now)
	a.logger.Info(ctx, "calendar updated", logger.Int("events", len(events)))
	return nil
}

// Update runs Refresh inside the agent's fault guard. It reports whether the
// refresh succeeded.
func (a *Agent) Update(ctx context.Context) bool {
	return a.guard.Do(ctx, a.Refresh) == nil
}

// Run refreshes the cache immediately and then every update interval until
// ctx is done. Failures are counted and logged, never returned.
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(a.every)
	defer ticker.Stop()
	for {
		a.Update(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Initialized reports whether at least one refresh succeeded.
func (a *Agent) Initialized() bool {
	select {
	case <-a.ready:
		return true
	default:
		return false
	}
}

// Ready is closed after the first successful refresh.
func (a *Agent) Ready() <-chan struct{} { return a.ready }

// WaitInitialized blocks until the first successful refresh or until ctx is done.
func (a *Agent) WaitInitialized(ctx context.Context) error {
	select {
	case <-a.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the cached events, sorted by start.
func (a *Agent) Events() []model.Event {
	return append([]model.Event(nil), (*a.events.Load())...)
}

// LastUpdate returns the time of the last successful refresh.
func (a *Agent) LastUpdate() time.Time {
	if t := a.updated.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// ActiveEvent returns the earliest event active at now, else the next future
// event, else model.NoEvent.
func (a *Agent) ActiveEvent(now time.Time) model.Event {
	events := *a.events.Load()
	for _, ev := range events {
		if ev.Active(now) {
			return ev
		}
	}
	for _, ev := range events {
		if ev.Future(now) {
			return ev
		}
	}
	return model.NoEvent
}
