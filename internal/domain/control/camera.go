// Package control keeps cameras on the preset their schedule asks for and
// lets an operator take a camera out of automatic control.
package control

import (
	"strings"
	"sync"
	"time"

	"github.com/okian/camctl/internal/adapters/device"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/internal/domain/types"
)

// Default presets.
const (
	DefaultPresetActive   = 1
	DefaultPresetInactive = 10
)

// Camera is one PTZ unit together with the state the reconciliation loop
// keeps about it. Mode and position are shared with the override controller.
type Camera struct {
	key            string
	agent          string
	dev            device.Device
	presetActive   int
	presetInactive int

	mu         sync.Mutex
	mode       model.Mode
	gen        uint64
	position   int
	lastResend time.Time
	blocked    map[int]bool
}

// NewCamera wraps dev. agent is the id of the venue schedule it follows.
func NewCamera(agent string, dev device.Device, presetActive, presetInactive int) *Camera {
	return &Camera{
		key:            Key(dev.URL()),
		agent:          agent,
		dev:            dev,
		presetActive:   presetActive,
		presetInactive: presetInactive,
		mode:           model.ModeAutomatic,
		position:       model.UnknownPosition,
		blocked:        make(map[int]bool),
	}
}

// Key normalizes a camera URL for lookups: scheme and trailing slashes are ignored.
func Key(rawURL string) string {
	k := strings.TrimSpace(rawURL)
	k = strings.TrimPrefix(k, "http://")
	k = strings.TrimPrefix(k, "https://")
	return strings.TrimRight(k, "/")
}

// Key returns the lookup key of the camera.
func (c *Camera) Key() string { return c.key }

// URL returns the camera base URL.
func (c *Camera) URL() string { return c.dev.URL() }

// Agent returns the id of the camera's venue.
func (c *Camera) Agent() string { return c.agent }

// Device returns the vendor adapter.
func (c *Camera) Device() device.Device { return c.dev }

// Presets returns the active and inactive preset numbers.
func (c *Camera) Presets() (active, inactive int) { return c.presetActive, c.presetInactive }

// Mode returns the current control mode.
func (c *Camera) Mode() model.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Position returns the last confirmed preset or model.UnknownPosition.
func (c *Camera) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// SetMode switches the control mode and forgets the position so that the
// next automatic tick sends a command. It reports whether the mode changed.
func (c *Camera) SetMode(mode model.Mode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.mode != mode
	c.mode = mode
	c.gen++
	c.position = model.UnknownPosition
	clear(c.blocked)
	return changed
}

// Status returns a snapshot of the camera.
func (c *Camera) Status() types.CameraStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.CameraStatus{
		Key:            c.key,
		URL:            c.dev.URL(),
		Agent:          c.agent,
		Vendor:         string(c.dev.Vendor()),
		Mode:           string(c.mode),
		Position:       c.position,
		PresetActive:   c.presetActive,
		PresetInactive: c.presetInactive,
		LastResend:     c.lastResend,
	}
}

// snapshot is the camera state one tick works from. gen changes on every
// SetMode so that a tick can tell whether an operator intervened.
type snapshot struct {
	mode       model.Mode
	gen        uint64
	position   int
	lastResend time.Time
}

func (c *Camera) snapshot() snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot{mode: c.mode, gen: c.gen, position: c.position, lastResend: c.lastResend}
}

// automatic reports whether the camera is still in automatic mode with no
// SetMode since the snapshot with generation gen.
func (c *Camera) automatic(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == model.ModeAutomatic && c.gen == gen
}

// confirm records preset as the position unless SetMode ran since gen.
func (c *Camera) confirm(preset int, at time.Time, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.position = preset
	c.lastResend = at
	return true
}

func (c *Camera) block(preset int, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.blocked[preset] = true
	}
}

func (c *Camera) isBlocked(preset int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked[preset]
}
