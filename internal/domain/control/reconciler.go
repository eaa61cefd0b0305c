package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/guard"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
)

const (
	// DefaultTick is the reconciliation interval.
	DefaultTick = time.Second
	// DefaultSettleDelay is the wait after powering a camera on.
	DefaultSettleDelay = 10 * time.Second
	// DefaultResendInterval is how often the current preset is re-asserted.
	DefaultResendInterval = 300 * time.Second

	statusLogInterval = time.Minute
	maxTitleLen       = 40
)

// Schedule is the read side of a venue schedule cache.
type Schedule interface {
	ID() string
	Initialized() bool
	ActiveEvent(now time.Time) model.Event
}

// Reconciler drives one camera towards the preset its schedule asks for.
// Only one Reconciler may run per camera.
type Reconciler struct {
	cam      *Camera
	schedule Schedule
	clock    Clock
	tick     time.Duration
	settle   time.Duration
	resend   time.Duration
	sink     metrics.Sink
	logger   logger.Logger
	guard    *guard.Guard

	lastStatus time.Time
}

// ReconcilerOption applies a configuration option to the Reconciler.
type ReconcilerOption func(*Reconciler)

// WithClock replaces the wall clock.
func WithClock(c Clock) ReconcilerOption {
	return func(r *Reconciler) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithTick sets the loop interval.
func WithTick(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.tick = d
		}
	}
}

// WithSettleDelay sets the wait after a power-on.
func WithSettleDelay(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d >= 0 {
			r.settle = d
		}
	}
}

// WithResendInterval sets how often the current preset is sent again.
func WithResendInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.resend = d
		}
	}
}

// WithSink sets the metrics sink.
func WithSink(sink metrics.Sink) ReconcilerOption {
	return func(r *Reconciler) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReconciler creates the loop for cam following schedule.
func NewReconciler(cam *Camera, schedule Schedule, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		cam:      cam,
		schedule: schedule,
		clock:    SystemClock{},
		tick:     DefaultTick,
		settle:   DefaultSettleDelay,
		resend:   DefaultResendInterval,
		sink:     metrics.Discard{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("control")
	}
	r.logger = r.logger.With(logger.String("agent", schedule.ID()), logger.String("camera", cam.URL()))
	r.guard = guard.New(cam.URL(), "could not update camera",
		guard.WithSink(r.sink), guard.WithLogger(r.logger))
	return r
}

// Camera returns the controlled camera.
func (r *Reconciler) Camera() *Camera { return r.cam }

// Run calls Step once per tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		r.Step(ctx)
		if err := r.clock.Sleep(ctx, r.tick); err != nil {
			return
		}
	}
}

// Step performs one reconciliation pass.
func (r *Reconciler) Step(ctx context.Context) {
	now := r.clock.Now()
	level := r.statusLevel(now)

	state := r.cam.snapshot()
	if state.mode == model.ModeManual {
		r.logger.Log(ctx, level, "camera in manual mode")
		return
	}
	if !r.schedule.Initialized() {
		r.logger.Log(ctx, level, "calendar not yet initialized")
		return
	}

	event := r.schedule.ActiveEvent(now)
	active, inactive := r.cam.Presets()
	desired := inactive
	switch {
	case event.Active(now):
		desired = active
		r.logger.Log(ctx, level, "active event",
			logger.String("title", truncate(event.Title)), logger.Duration("ends_in", event.End.Sub(now).Round(time.Second)))
	case event.Future(now):
		r.logger.Log(ctx, level, "next event",
			logger.String("title", truncate(event.Title)), logger.Duration("starts_in", event.Start.Sub(now).Round(time.Second)))
	default:
		r.logger.Log(ctx, level, "no planned events")
	}

	if state.position != desired {
		if r.cam.isBlocked(desired) {
			return
		}
		if desired == active {
			r.logger.Info(ctx, "event started, moving to preset",
				logger.String("title", event.Title), logger.Int("preset", desired))
		} else {
			r.logger.Info(ctx, "returning to preset", logger.Int("preset", desired))
		}
		_ = r.guard.Do(ctx, func(ctx context.Context) error { return r.move(ctx, desired, state.gen) })
		return
	}

	if state.position != model.UnknownPosition && now.Sub(state.lastResend) >= r.resend {
		r.logger.Info(ctx, "re-sending preset to camera", logger.Int("preset", state.position))
		_ = r.guard.Do(ctx, func(ctx context.Context) error { return r.move(ctx, state.position, state.gen) })
	}
}

// move powers the camera on if needed and recalls preset. The command is
// dropped when the mode changed after the tick started (generation gen), and
// the position is only updated once the camera accepted the command.
func (r *Reconciler) move(ctx context.Context, preset int, gen uint64) error {
	dev := r.cam.Device()
	key := r.cam.URL()
	r.sink.CameraExpected(key, preset)
	if err := dev.ValidatePreset(preset); err != nil {
		r.cam.block(preset, gen)
		return err
	}

	power, err := dev.QueryPower(ctx)
	if err != nil {
		return err
	}
	if power != model.PowerOn {
		r.sink.CameraPower(key, false)
		r.logger.Info(ctx, "camera in standby, powering on")
		if err := dev.SetPower(ctx, true); err != nil {
			return err
		}
		if err := r.clock.Sleep(ctx, r.settle); err != nil {
			return err
		}
	}
	r.sink.CameraPower(key, true)

	if !r.cam.automatic(gen) {
		r.logger.Info(ctx, "control mode changed, preset not sent", logger.Int("preset", preset))
		return nil
	}
	if err := dev.MoveToPreset(ctx, preset); err != nil {
		if faults.KindOf(err) == faults.KindPresetOutOfRange {
			r.cam.block(preset, gen)
		}
		return err
	}
	if !r.cam.confirm(preset, r.clock.Now(), gen) {
		r.logger.Info(ctx, "control mode changed during move, position discarded", logger.Int("preset", preset))
		return nil
	}
	r.sink.CameraPosition(key, preset)
	return nil
}

// statusLevel returns INFO at most once per minute and DEBUG otherwise.
func (r *Reconciler) statusLevel(now time.Time) slog.Level {
	if r.lastStatus.IsZero() || now.Sub(r.lastStatus) >= statusLogInterval {
		r.lastStatus = now
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleLen {
		return s
	}
	return string(r[:maxTitleLen])
}
