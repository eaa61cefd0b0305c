// Package device drives PTZ cameras over their vendor HTTP interfaces.
package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 10
	maxResponseBytes    = 64 << 10
)

// Device is the capability set every camera vendor implements.
type Device interface {
	URL() string
	Vendor() model.Vendor
	QueryPower(ctx context.Context) (model.Power, error)
	SetPower(ctx context.Context, on bool) error
	// MoveToPreset rejects presets outside the vendor range before any network call.
	MoveToPreset(ctx context.Context, preset int) error
	ValidatePreset(preset int) error
}

// Config describes one physical camera.
type Config struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
	// PollInterval and MaxPolls bound the wait for a camera leaving its power-up transition.
	PollInterval time.Duration
	MaxPolls     int
	// HTTPClient replaces the client built from Timeout. Vendor auth is layered on its transport.
	HTTPClient *http.Client
	Logger     logger.Logger
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = defaultMaxPolls
	}
	if c.Logger == nil {
		c.Logger = logger.Get().Named("device")
	}
	return c
}

func (c Config) auth() bool { return c.User != "" && c.Password != "" }

// Constructor builds a Device from its Config.
type Constructor func(cfg Config) (Device, error)

// Factory maps vendors to their constructors.
type Factory struct {
	creators map[model.Vendor]Constructor
}

// NewFactory returns a factory with every built-in vendor registered.
func NewFactory() *Factory {
	f := &Factory{creators: make(map[model.Vendor]Constructor)}
	f.Register(model.VendorPanasonic, NewPanasonic)
	f.Register(model.VendorSony, NewSony)
	return f
}

// Register adds or replaces the constructor for vendor.
func (f *Factory) Register(vendor model.Vendor, c Constructor) {
	f.creators[vendor] = c
}

// New builds the device for vendor.
func (f *Factory) New(vendor model.Vendor, cfg Config) (Device, error) {
	create, ok := f.creators[model.Vendor(strings.ToLower(string(vendor)))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownVendor, vendor)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNoURL
	}
	return create(cfg)
}

// Vendors lists the registered vendors in name order.
func (f *Factory) Vendors() []model.Vendor {
	out := make([]model.Vendor, 0, len(f.creators))
	for v := range f.creators {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// endpoint is the HTTP plumbing shared by the vendor implementations.
type endpoint struct {
	base    string
	http    *http.Client
	headers http.Header
	// user and password are sent as basic auth when set.
	user     string
	password string
	logger   logger.Logger
}

// get issues GET base+path and returns the body. Failures are *faults.DeviceCommError.
func (e *endpoint) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	u := e.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &faults.DeviceCommError{Camera: e.base, Op: op, Err: err}
	}
	if e.user != "" {
		req.SetBasicAuth(e.user, e.password)
	}
	for k, vs := range e.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	e.logger.Debug(ctx, "camera request", logger.String("url", u))

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &faults.DeviceCommError{Camera: e.base, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &faults.DeviceCommError{
			Camera: e.base, Op: op, Status: resp.StatusCode,
			Err: fmt.Errorf("%w: %s", ErrStatus, resp.Status),
		}
	}
	if err != nil {
		return nil, &faults.DeviceCommError{Camera: e.base, Op: op, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}

func newHTTPClient(cfg Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return &http.Client{Timeout: cfg.Timeout}
}

func checkRange(camera string, preset, lo, hi int) error {
	if preset < lo || preset > hi {
		return &faults.PresetOutOfRangeError{Camera: camera, Preset: preset, Min: lo, Max: hi}
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
