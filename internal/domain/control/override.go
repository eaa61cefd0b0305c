package control

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
)

// DefaultResetTime is the local time of day every camera returns to automatic mode.
const DefaultResetTime = "03:00"

// Override switches cameras between automatic and manual control and puts
// every camera back into automatic mode once a day.
type Override struct {
	mu      sync.RWMutex
	cameras map[string]*Camera
	sink    metrics.Sink
	logger  logger.Logger

	resetSpec string
	location  *time.Location
	cron      *cron.Cron
}

// OverrideOption applies a configuration option to the Override.
type OverrideOption func(*Override)

// WithResetTime sets the daily reset as "HH:MM".
func WithResetTime(hhmm string) OverrideOption {
	return func(o *Override) {
		if hhmm != "" {
			o.resetSpec = hhmm
		}
	}
}

// WithLocation sets the zone the reset time is read in.
func WithLocation(loc *time.Location) OverrideOption {
	return func(o *Override) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithOverrideSink sets the metrics sink.
func WithOverrideSink(sink metrics.Sink) OverrideOption {
	return func(o *Override) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithOverrideLogger sets a custom logger.
func WithOverrideLogger(l logger.Logger) OverrideOption {
	return func(o *Override) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOverride creates the controller for cameras. Duplicate camera keys are rejected.
func NewOverride(cameras []*Camera, opts ...OverrideOption) (*Override, error) {
	o := &Override{
		cameras:   make(map[string]*Camera, len(cameras)),
		sink:      metrics.Discard{},
		resetSpec: DefaultResetTime,
		location:  time.Local,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("override")
	}
	for _, c := range cameras {
		if _, dup := o.cameras[c.Key()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCamera, c.URL())
		}
		o.cameras[c.Key()] = c
		o.sink.CameraMode(c.URL(), c.Mode() == model.ModeAutomatic)
	}

	spec, err := CronSpec(o.resetSpec)
	if err != nil {
		return nil, err
	}
	o.cron = cron.New(cron.WithLocation(o.location), cron.WithLogger(cronLogger{o.logger}))
	if _, err := o.cron.AddFunc(spec, func() { o.ResetAll(context.Background()) }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetTime, err)
	}
	return o, nil
}

// CronSpec turns "HH:MM" into a daily cron expression.
func CronSpec(hhmm string) (string, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrResetTime, hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: %q", ErrResetTime, hhmm)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrResetTime, hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Start schedules the daily reset.
func (o *Override) Start() {
	o.cron.Start()
	o.logger.Info(context.Background(), "daily reset scheduled", logger.Time("next", o.NextReset()))
}

// Stop cancels the daily reset and waits for a running reset to finish.
func (o *Override) Stop() {
	<-o.cron.Stop().Done()
}

// NextReset returns the time of the next daily reset, or zero before Start.
func (o *Override) NextReset() time.Time {
	entries := o.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Camera looks a camera up by URL. Scheme and trailing slashes are ignored.
func (o *Override) Camera(rawURL string) (*Camera, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.cameras[Key(rawURL)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, rawURL)
	}
	return c, nil
}

// Cameras returns every camera ordered by key.
func (o *Override) Cameras() []*Camera {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Camera, 0, len(o.cameras))
	for _, c := range o.cameras {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// SetMode sets the control mode of a camera and forces its next command.
func (o *Override) SetMode(ctx context.Context, rawURL string, mode model.Mode) error {
	c, err := o.Camera(rawURL)
	if err != nil {
		return err
	}
	if c.SetMode(mode) {
		o.logger.Info(ctx, "control mode changed",
			logger.String("camera", c.URL()), logger.String("mode", string(mode)))
	}
	o.sink.CameraMode(c.URL(), mode == model.ModeAutomatic)
	return nil
}

// GetMode returns the control mode of a camera.
func (o *Override) GetMode(rawURL string) (model.Mode, error) {
	c, err := o.Camera(rawURL)
	if err != nil {
		return "", err
	}
	return c.Mode(), nil
}

// ResetAll puts every camera back into automatic mode.
func (o *Override) ResetAll(ctx context.Context) {
	o.logger.Info(ctx, "resetting all cameras to automatic mode")
	for _, c := range o.Cameras() {
		c.SetMode(model.ModeAutomatic)
		o.sink.CameraMode(c.URL(), true)
	}
}

// cronLogger feeds cron's scheduler log into the application logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), "cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), "cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
