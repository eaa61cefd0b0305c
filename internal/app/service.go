// Package service wires schedules, cameras and their control loops together
// and provides what the admin API and the CLI need.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/camctl/internal/adapters/device"
	"github.com/okian/camctl/internal/adapters/opencast"
	"github.com/okian/camctl/internal/adapters/worker"
	"github.com/okian/camctl/internal/config"
	"github.com/okian/camctl/internal/domain/agenda"
	"github.com/okian/camctl/internal/domain/control"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/internal/domain/types"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
)

// Service owns every agent, camera and control loop of the process.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	opencast *opencast.Client
	factory  *device.Factory

	agents      []*agenda.Agent
	agentByID   map[string]*agenda.Agent
	reconcilers []*control.Reconciler
	override    *control.Override
	pool        *worker.Pool

	sink       metrics.Sink
	clock      control.Clock
	httpClient *http.Client
	tick       time.Duration

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSink sets the metrics sink every component reports into.
func WithSink(sink metrics.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock replaces the wall clock of the reconciliation loops.
func WithClock(c control.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTick sets the reconciliation interval.
func WithTick(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithDeviceFactory replaces the camera vendor registry.
func WithDeviceFactory(f *device.Factory) Option {
	return func(s *Service) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithHTTPClient sets the client used for Opencast and the cameras.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// New builds the service from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		factory:   device.NewFactory(),
		agentByID: make(map[string]*agenda.Agent),
		sink:      metrics.Discard{},
		clock:     control.SystemClock{},
		tick:      control.DefaultTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	ocOpts := []opencast.Option{
		opencast.WithCredentials(cfg.Opencast.Username, cfg.Opencast.Password),
		opencast.WithFormat(cfg.Calendar.Format),
		opencast.WithTimeout(cfg.RequestTimeout),
		opencast.WithLocation(loc),
		opencast.WithLogger(s.logger.Named("opencast")),
	}
	if s.httpClient != nil {
		ocOpts = append(ocOpts, opencast.WithHTTPClient(s.httpClient))
	}
	s.opencast, err = opencast.NewClient(cfg.Opencast.Server, ocOpts...)
	if err != nil {
		return nil, err
	}

	agentIDs := make([]string, 0, len(cfg.Cameras))
	for id := range cfg.Cameras {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)

	var cameras []*control.Camera
	for _, id := range agentIDs {
		agent := agenda.New(id, s.opencast,
			agenda.WithCutoff(cfg.CalendarCutoff()),
			agenda.WithUpdateFrequency(cfg.CalendarUpdateFrequency()),
			agenda.WithSink(s.sink),
			agenda.WithLogger(s.logger.Named("agenda")),
		)
		s.agents = append(s.agents, agent)
		s.agentByID[id] = agent

		for _, cc := range cfg.Cameras[id] {
			dev, err := s.factory.New(model.Vendor(cc.Type), device.Config{
				URL:        cc.URL,
				User:       cc.User,
				Password:   cc.Password,
				Timeout:    cfg.RequestTimeout,
				HTTPClient: s.httpClient,
				Logger:     s.logger.Named("device"),
			})
			if err != nil {
				return nil, fmt.Errorf("camera %s of agent %s: %w", cc.URL, id, err)
			}
			cam := control.NewCamera(id, dev, cc.PresetActive, cc.PresetInactive)
			cameras = append(cameras, cam)
			s.reconcilers = append(s.reconcilers, control.NewReconciler(cam, agent,
				control.WithClock(s.clock),
				control.WithTick(s.tick),
				control.WithSettleDelay(cfg.SettleDelay),
				control.WithResendInterval(cfg.ResendInterval()),
				control.WithSink(s.sink),
				control.WithLogger(s.logger.Named("control")),
			))
		}
	}

	s.override, err = control.NewOverride(cameras,
		control.WithResetTime(cfg.ResetTime),
		control.WithLocation(loc),
		control.WithOverrideSink(s.sink),
		control.WithOverrideLogger(s.logger.Named("override")),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start verifies the agents and launches one refresh loop per agent and one
// reconciliation loop per camera.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting camera control service...")

	if s.cfg.VerifyAgents {
		for _, a := range s.agents {
			s.verifyAgent(ctx, a.ID())
		}
	}

	s.pool = worker.NewPool(worker.WithLogger(s.logger.Named("worker-pool")))
	for _, a := range s.agents {
		if err := s.pool.Add("agent/"+a.ID(), a); err != nil {
			return err
		}
	}
	for _, r := range s.reconcilers {
		s.logger.Info(ctx, "starting camera control",
			logger.String("camera", r.Camera().URL()),
			logger.String("agent", r.Camera().Agent()),
			logger.String("mode", string(r.Camera().Mode())),
		)
		if err := s.pool.Add("camera/"+r.Camera().Key(), r); err != nil {
			return err
		}
	}
	s.pool.Start(context.WithoutCancel(ctx))
	s.override.Start()

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "camera control service started",
		logger.Int("agents", len(s.agents)),
		logger.Int("cameras", len(s.reconcilers)),
		logger.String("reset_time", s.cfg.ResetTime),
	)
	return nil
}

func (s *Service) verifyAgent(ctx context.Context, id string) {
	err := s.opencast.VerifyAgent(ctx, id)
	switch {
	case err == nil:
		s.logger.Debug(ctx, "capture agent verified", logger.String("agent", id))
	case errors.Is(err, opencast.ErrAgentNotFound):
		s.logger.Warn(ctx, "capture agent not registered with opencast", logger.String("agent", id))
	default:
		s.logger.Warn(ctx, "could not verify capture agent", logger.String("agent", id), logger.Error(err))
	}
}

// Stop cancels every loop and the daily reset.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping camera control service...")
	s.override.Stop()
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "camera control service stopped")
	return err
}

// SetMode switches a camera, addressed by URL, between automatic and manual control.
func (s *Service) SetMode(ctx context.Context, camera string, mode model.Mode) error {
	return s.override.SetMode(ctx, camera, mode)
}

// GetMode returns the control mode of a camera addressed by URL.
func (s *Service) GetMode(_ context.Context, camera string) (model.Mode, error) {
	return s.override.GetMode(camera)
}

// ResetAll puts every camera back into automatic mode.
func (s *Service) ResetAll(ctx context.Context) {
	s.override.ResetAll(ctx)
}

// Cameras returns the status of every camera ordered by key.
func (s *Service) Cameras(_ context.Context) []types.CameraStatus {
	cams := s.override.Cameras()
	out := make([]types.CameraStatus, 0, len(cams))
	for _, c := range cams {
		out = append(out, c.Status())
	}
	return out
}

// Camera returns the status of one camera addressed by URL.
func (s *Service) Camera(_ context.Context, camera string) (types.CameraStatus, error) {
	c, err := s.override.Camera(camera)
	if err != nil {
		return types.CameraStatus{}, err
	}
	return c.Status(), nil
}

// Agents returns the schedule status of every agent ordered by id.
func (s *Service) Agents(_ context.Context) []types.AgentStatus {
	now := s.clock.Now()
	out := make([]types.AgentStatus, 0, len(s.agents))
	for _, a := range s.agents {
		st := types.AgentStatus{
			ID:          a.ID(),
			Initialized: a.Initialized(),
			LastUpdate:  a.LastUpdate(),
			Events:      len(a.Events()),
		}
		if ev := a.ActiveEvent(now); !ev.IsZero() {
			st.Current = eventView(ev, now)
		}
		out = append(out, st)
	}
	return out
}

// Events returns the cached events of an agent.
func (s *Service) Events(_ context.Context, agentID string) ([]types.Event, error) {
	a, ok := s.agentByID[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	now := s.clock.Now()
	events := a.Events()
	out := make([]types.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, *eventView(ev, now))
	}
	return out, nil
}

// Calendar fetches the upcoming events of any agent directly from Opencast.
func (s *Service) Calendar(ctx context.Context, agentID string) ([]types.Event, error) {
	now := time.Now()
	events, err := s.opencast.Fetch(ctx, agentID, now.Add(s.cfg.CalendarCutoff()))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	out := make([]types.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, *eventView(ev, now))
	}
	return out, nil
}

// Ready reports whether every agent has loaded its calendar once.
func (s *Service) Ready() bool {
	for _, a := range s.agents {
		if !a.Initialized() {
			return false
		}
	}
	return true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	initialized := 0
	for _, a := range s.agents {
		if a.Initialized() {
			initialized++
		}
	}
	modes := map[string]int{string(model.ModeAutomatic): 0, string(model.ModeManual): 0}
	for _, c := range s.override.Cameras() {
		modes[string(c.Mode())]++
	}

	stats := map[string]interface{}{
		"started":            s.started,
		"agents":             len(s.agents),
		"agents_initialized": initialized,
		"cameras":            len(s.reconcilers),
		"modes":              modes,
		"reset_time":         s.cfg.ResetTime,
		"calendar_format":    strings.ToLower(s.cfg.Calendar.Format),
	}
	if s.started {
		stats["uptime_seconds"] = int(time.Since(s.startedAt).Seconds())
		if next := s.override.NextReset(); !next.IsZero() {
			stats["next_reset"] = next.Format(time.RFC3339)
		}
	}
	return stats
}

func eventView(ev model.Event, now time.Time) *types.Event {
	return &types.Event{Title: ev.Title, Start: ev.Start, End: ev.End, Active: ev.Active(now)}
}
