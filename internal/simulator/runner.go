package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/camctl/internal/config"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

// Default simulator settings.
const (
	DefaultAddr        = "127.0.0.1:9090"
	DefaultLead        = 30 * time.Second
	DefaultLength      = 2 * time.Minute
	DefaultGap         = 3 * time.Minute
	DefaultEvents      = 10
	shutdownTimeout    = 5 * time.Second
	readHeaderTimeout  = 5 * time.Second
	agentPrefix        = "room-"
	cameraPathTemplate = "/cameras/%s/%s/"
)

// Config describes a simulated site.
type Config struct {
	Addr   string
	Agents int
	// Lead is the time until the first recording, Length its duration and Gap the pause between recordings.
	Lead   time.Duration
	Length time.Duration
	Gap    time.Duration
	Events int
}

// Site is a running simulation: one Opencast and a Panasonic and a Sony camera per agent.
type Site struct {
	ID       string
	Opencast *Opencast
	Cameras  map[string]*Camera
	agents   []string
	mux      *http.ServeMux
}

// NewSite builds the simulated site and schedules its recordings relative to now.
func NewSite(cfg Config, now time.Time) *Site {
	if cfg.Agents <= 0 {
		cfg.Agents = 1
	}
	s := &Site{
		ID:      uuid.NewString(),
		Cameras: make(map[string]*Camera),
		mux:     http.NewServeMux(),
	}
	for i := 1; i <= cfg.Agents; i++ {
		s.agents = append(s.agents, fmt.Sprintf("%s%d", agentPrefix, i))
	}
	s.Opencast = NewOpencast(s.agents...)
	s.mux.Handle("/recordings/", s.Opencast)
	s.mux.Handle("/capture-admin/", s.Opencast)

	for _, agent := range s.agents {
		for _, vendor := range []model.Vendor{model.VendorPanasonic, model.VendorSony} {
			path := fmt.Sprintf(cameraPathTemplate, agent, vendor)
			cam := NewCamera(vendor)
			s.Cameras[path] = cam
			s.mux.Handle(path, http.StripPrefix(path[:len(path)-1], cam))
		}
		start := now.Add(cfg.Lead)
		for n := 0; n < cfg.Events; n++ {
			s.Opencast.AddEvent(agent, fmt.Sprintf("Lecture %d", n+1), start, start.Add(cfg.Length))
			start = start.Add(cfg.Length + cfg.Gap)
		}
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// CamctlConfig returns a camctl configuration pointing at the site served on baseURL.
func (s *Site) CamctlConfig(baseURL string) *config.Config {
	cfg := config.New()
	cfg.Opencast.Server = baseURL
	cfg.Opencast.Username = "admin"
	cfg.Opencast.Password = "opencast"
	for _, agent := range s.agents {
		for _, vendor := range []model.Vendor{model.VendorPanasonic, model.VendorSony} {
			cam := config.Camera{
				URL:            baseURL + fmt.Sprintf(cameraPathTemplate, agent, vendor),
				Type:           string(vendor),
				PresetActive:   config.DefaultPresetActive,
				PresetInactive: config.DefaultPresetInactive,
			}
			cfg.Cameras[agent] = append(cfg.Cameras[agent], cam)
		}
	}
	return cfg
}

// Run serves a simulated site until ctx is done. The matching camctl
// configuration is logged as YAML.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	log := logger.Get().Named("simulator")
	site := NewSite(cfg, time.Now())

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	baseURL := "http://" + ln.Addr().String()
	dump, err := yaml.Marshal(site.CamctlConfig(baseURL))
	if err != nil {
		return err
	}
	log.Info(ctx, "simulator listening",
		logger.String("run_id", site.ID),
		logger.String("url", baseURL),
		logger.Int("agents", len(site.agents)),
	)
	log.Info(ctx, "camctl configuration for this simulator:\n"+string(dump))

	srv := &http.Server{Handler: site, ReadHeaderTimeout: readHeaderTimeout}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
