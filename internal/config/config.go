// Package config defines the service configuration and how it is loaded.
//
// Conventions:
//   - Defaults live in New; Load layers a YAML file and CAMCTL_ env vars on top.
//   - Durations given as plain integers are seconds, as in older config files.
//   - Validate is the single place that decides whether a Config can run.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve on hosts without zoneinfo

	"github.com/okian/camctl/internal/domain/control"
	"github.com/okian/camctl/internal/domain/model"
)

// Calendar formats.
const (
	FormatJSON = "json"
	FormatICS  = "ics"
)

// Presets used when a camera entry names none.
const (
	DefaultPresetActive   = control.DefaultPresetActive
	DefaultPresetInactive = control.DefaultPresetInactive
)

const redacted = "********"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// ResetTime is the local "HH:MM" at which every camera returns to automatic mode.
	ResetTime string `koanf:"reset_time" yaml:"reset_time"`

	// Timezone names the zone of ResetTime and of calendar dates without offset. Empty means local.
	Timezone string `koanf:"timezone" yaml:"timezone"`

	// CameraUpdateFrequency is the resend interval in seconds.
	CameraUpdateFrequency int `koanf:"camera_update_frequency" yaml:"camera_update_frequency"`

	// SettleDelay is the wait after powering a camera on.
	SettleDelay time.Duration `koanf:"settle_delay" yaml:"-"`

	// RequestTimeout bounds every call to Opencast or a camera.
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"-"`

	// VerifyAgents checks at startup that each agent is registered with Opencast.
	VerifyAgents bool `koanf:"verify_agents" yaml:"verify_agents"`

	Opencast  Opencast            `koanf:"opencast" yaml:"opencast"`
	Calendar  Calendar            `koanf:"calendar" yaml:"calendar"`
	Cameras   map[string][]Camera `koanf:"camera" yaml:"camera"`
	Metrics   Metrics             `koanf:"metrics" yaml:"metrics"`
	Server    Server              `koanf:"server" yaml:"server"`
	BasicAuth BasicAuth           `koanf:"basic_auth" yaml:"basic_auth"`

	// Source is the file the configuration was read from, if any.
	Source string `koanf:"-" yaml:"-"`
}

// Opencast holds the schedule source endpoint and credentials.
type Opencast struct {
	Server   string `koanf:"server" yaml:"server"`
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
}

// Calendar controls schedule refreshes.
type Calendar struct {
	// UpdateFrequency is the refresh interval in seconds.
	UpdateFrequency int `koanf:"update_frequency" yaml:"update_frequency"`
	// Cutoff is how far ahead events are fetched, in seconds.
	Cutoff int    `koanf:"cutoff" yaml:"cutoff"`
	Format string `koanf:"format" yaml:"format"`
}

// Camera is one entry of the per-agent camera list.
type Camera struct {
	URL            string `koanf:"url" yaml:"url"`
	Type           string `koanf:"type" yaml:"type"`
	User           string `koanf:"user" yaml:"user,omitempty"`
	Password       string `koanf:"password" yaml:"password,omitempty"`
	PresetActive   int    `koanf:"preset_active" yaml:"preset_active"`
	PresetInactive int    `koanf:"preset_inactive" yaml:"preset_inactive"`
}

// Metrics configures the standalone Prometheus exporter.
type Metrics struct {
	Enabled  bool   `koanf:"enabled" yaml:"enabled"`
	Addr     string `koanf:"addr" yaml:"addr"`
	CertFile string `koanf:"certfile" yaml:"certfile,omitempty"`
	KeyFile  string `koanf:"keyfile" yaml:"keyfile,omitempty"`
}

// Server configures the admin HTTP API.
type Server struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}

// BasicAuth protects the admin API when both fields are set.
type BasicAuth struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		ResetTime:             control.DefaultResetTime,
		CameraUpdateFrequency: 300,
		SettleDelay:           10 * time.Second,
		RequestTimeout:        5 * time.Second,
		VerifyAgents:          true,
		Calendar: Calendar{
			UpdateFrequency: 120,
			Cutoff:          7 * 24 * 60 * 60,
			Format:          FormatJSON,
		},
		Cameras: map[string][]Camera{},
		Metrics: Metrics{
			Enabled: false,
			Addr:    "127.0.0.1:8000",
		},
		Server: Server{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
	}
}

// Location returns the configured zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// ResendInterval returns CameraUpdateFrequency as a duration.
func (c *Config) ResendInterval() time.Duration {
	return time.Duration(c.CameraUpdateFrequency) * time.Second
}

// CalendarUpdateFrequency returns Calendar.UpdateFrequency as a duration.
func (c *Config) CalendarUpdateFrequency() time.Duration {
	return time.Duration(c.Calendar.UpdateFrequency) * time.Second
}

// CalendarCutoff returns Calendar.Cutoff as a duration.
func (c *Config) CalendarCutoff() time.Duration {
	return time.Duration(c.Calendar.Cutoff) * time.Second
}

// Validate reports the first problem that would keep the service from running.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Opencast.Server) == "" {
		return fmt.Errorf("%w: opencast.server must not be empty", ErrInvalidConfig)
	}
	if _, err := control.CronSpec(c.ResetTime); err != nil {
		return fmt.Errorf("%w: reset_time: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.CameraUpdateFrequency <= 0 || c.Calendar.UpdateFrequency <= 0 || c.Calendar.Cutoff <= 0 {
		return fmt.Errorf("%w: update frequencies and cutoff must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 || c.SettleDelay < 0 {
		return fmt.Errorf("%w: request_timeout must be positive and settle_delay not negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.Calendar.Format) {
	case FormatJSON, FormatICS:
	default:
		return fmt.Errorf("%w: calendar.format %q", ErrInvalidConfig, c.Calendar.Format)
	}
	if len(c.Cameras) == 0 {
		return fmt.Errorf("%w: no cameras configured", ErrInvalidConfig)
	}
	for agent, cams := range c.Cameras {
		for i, cam := range cams {
			if strings.TrimSpace(cam.URL) == "" {
				return fmt.Errorf("%w: camera.%s[%d]: url must not be empty", ErrInvalidConfig, agent, i)
			}
			switch model.Vendor(strings.ToLower(cam.Type)) {
			case model.VendorPanasonic, model.VendorSony:
			default:
				return fmt.Errorf("%w: camera.%s[%d]: unknown type %q", ErrInvalidConfig, agent, i, cam.Type)
			}
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr must not be empty", ErrInvalidConfig)
	}
	return nil
}

// MarshalYAML writes durations as "10s" rather than nanoseconds.
func (c Config) MarshalYAML() (interface{}, error) {
	type plain Config
	return struct {
		plain          `yaml:",inline"`
		SettleDelay    string `yaml:"settle_delay"`
		RequestTimeout string `yaml:"request_timeout"`
	}{plain: plain(c), SettleDelay: c.SettleDelay.String(), RequestTimeout: c.RequestTimeout.String()}, nil
}

// Redacted returns a copy with every password replaced.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Opencast.Password != "" {
		out.Opencast.Password = redacted
	}
	if out.BasicAuth.Password != "" {
		out.BasicAuth.Password = redacted
	}
	out.Cameras = make(map[string][]Camera, len(c.Cameras))
	for agent, cams := range c.Cameras {
		cp := append([]Camera(nil), cams...)
		for i := range cp {
			if cp[i].Password != "" {
				cp[i].Password = redacted
			}
		}
		out.Cameras[agent] = cp
	}
	return &out
}
