package device

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

// Panasonic preset range.
const (
	PanasonicMinPreset = 0
	PanasonicMaxPreset = 100
)

// Power answers to the #O query.
const (
	panasonicStandby    = "p0"
	panasonicOn         = "p1"
	panasonicTransition = "p3"
)

// Panasonic speaks the AW series aw_ptz protocol with optional basic auth.
type Panasonic struct {
	endpoint
	pollInterval time.Duration
	maxPolls     int
}

// NewPanasonic builds a Panasonic device.
func NewPanasonic(cfg Config) (Device, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	p := &Panasonic{
		endpoint: endpoint{
			base:   cfg.URL,
			http:   newHTTPClient(cfg),
			logger: cfg.Logger.With(logger.String("camera", cfg.URL)),
		},
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
	}
	if cfg.auth() {
		p.user, p.password = cfg.User, cfg.Password
	}
	return p, nil
}

// URL returns the camera base URL.
func (p *Panasonic) URL() string { return p.base }

// Vendor implements Device.
func (p *Panasonic) Vendor() model.Vendor { return model.VendorPanasonic }

func (p *Panasonic) command(ctx context.Context, op, cmd string) (string, error) {
	params := url.Values{}
	params.Set("cmd", cmd)
	params.Set("res", "1")
	body, err := p.get(ctx, op, "/cgi-bin/aw_ptz", params)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// QueryPower asks for the power state. While the camera reports the
// standby-to-on transition it is polled again, at most maxPolls times.
func (p *Panasonic) QueryPower(ctx context.Context) (model.Power, error) {
	for attempt := 1; ; attempt++ {
		state, err := p.command(ctx, "query power", "#O")
		if err != nil {
			return model.PowerStandby, err
		}
		switch state {
		case panasonicStandby:
			return model.PowerStandby, nil
		case panasonicOn:
			return model.PowerOn, nil
		case panasonicTransition:
			if attempt >= p.maxPolls {
				return model.PowerStandby, &faults.PowerTransitionTimeoutError{Camera: p.base, Attempts: attempt}
			}
			p.logger.Debug(ctx, "camera powering up", logger.Int("attempt", attempt))
			if err := sleep(ctx, p.pollInterval); err != nil {
				return model.PowerStandby, &faults.DeviceCommError{Camera: p.base, Op: "query power", Err: err}
			}
		default:
			return model.PowerStandby, &faults.DeviceCommError{
				Camera: p.base, Op: "query power",
				Err: fmt.Errorf("%w: %q", ErrBadResponse, state),
			}
		}
	}
}

// SetPower switches the camera on or to standby.
func (p *Panasonic) SetPower(ctx context.Context, on bool) error {
	cmd := "#Of"
	if on {
		cmd = "#On"
	}
	_, err := p.command(ctx, "set power", cmd)
	return err
}

// ValidatePreset implements Device.
func (p *Panasonic) ValidatePreset(preset int) error {
	return checkRange(p.base, preset, PanasonicMinPreset, PanasonicMaxPreset)
}

// MoveToPreset recalls preset. The protocol numbers presets from zero.
func (p *Panasonic) MoveToPreset(ctx context.Context, preset int) error {
	if err := p.ValidatePreset(preset); err != nil {
		return err
	}
	// Presets 0 and 1 both recall #R00.
	_, err := p.command(ctx, "move to preset", fmt.Sprintf("#R%02d", max(preset-1, 0)))
	return err
}
