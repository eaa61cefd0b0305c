package simulator

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/camctl/internal/domain/model"
)

// Camera emulates the HTTP command interface of one PTZ camera.
type Camera struct {
	mu       sync.Mutex
	vendor   model.Vendor
	on       bool
	warmup   int
	pending  int
	preset   int
	moves    []int
	requests int
	down     bool
	mux      *http.ServeMux
}

// NewCamera returns a powered-on camera of vendor with an unknown preset.
func NewCamera(vendor model.Vendor) *Camera {
	c := &Camera{vendor: vendor, on: true, preset: model.UnknownPosition}
	c.mux = http.NewServeMux()
	switch vendor {
	case model.VendorSony:
		c.mux.HandleFunc("GET /command/inquiry.cgi", c.sonyInquiry)
		c.mux.HandleFunc("GET /command/main.cgi", c.sonyMain)
		c.mux.HandleFunc("GET /command/presetposition.cgi", c.sonyPreset)
	default:
		c.mux.HandleFunc("GET /cgi-bin/aw_ptz", c.panasonic)
	}
	return c
}

// SetStandby switches the camera off. Once switched on again it reports the
// power-up transition for warmup queries.
func (c *Camera) SetStandby(warmup int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = false
	c.warmup = warmup
}

// SetDown makes the camera answer 503 to everything.
func (c *Camera) SetDown(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = down
}

// Preset returns the preset the camera was last moved to.
func (c *Camera) Preset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preset
}

// Moves returns every preset recall in order.
func (c *Camera) Moves() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.moves...)
}

// On reports whether the camera is powered on.
func (c *Camera) On() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// Requests returns the number of requests received.
func (c *Camera) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// ServeHTTP implements http.Handler.
func (c *Camera) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests++
	down := c.down
	c.mu.Unlock()
	if down {
		http.Error(w, "camera unavailable", http.StatusServiceUnavailable)
		return
	}
	c.mux.ServeHTTP(w, r)
}

func (c *Camera) powerOn() {
	if !c.on {
		c.on = true
		c.pending = c.warmup
	}
}

func (c *Camera) move(preset int) {
	c.preset = preset
	c.moves = append(c.moves, preset)
}

func (c *Camera) panasonic(w http.ResponseWriter, r *http.Request) {
	cmd := r.URL.Query().Get("cmd")
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case cmd == "#O":
		switch {
		case c.on && c.pending > 0:
			c.pending--
			fmt.Fprint(w, "p3")
		case c.on:
			fmt.Fprint(w, "p1")
		default:
			fmt.Fprint(w, "p0")
		}
	case cmd == "#On":
		c.powerOn()
		fmt.Fprint(w, "p1")
	case cmd == "#Of":
		c.on = false
		fmt.Fprint(w, "p0")
	case strings.HasPrefix(cmd, "#R"):
		n, err := strconv.Atoi(strings.TrimPrefix(cmd, "#R"))
		if err != nil || n < 0 || n > 99 {
			http.Error(w, "er3:R", http.StatusBadRequest)
			return
		}
		c.move(n + 1)
		fmt.Fprintf(w, "s%02d", n)
	default:
		http.Error(w, "er1:"+cmd, http.StatusBadRequest)
	}
}

func (c *Camera) sonyInquiry(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("inq") != "system" {
		http.Error(w, "unsupported inquiry", http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	power := "standby"
	if c.on {
		power = "on"
	}
	fmt.Fprintf(w, "ModelName=SRG-X400&Serial=00001&Power=%s", power)
}

func (c *Camera) sonyMain(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch r.URL.Query().Get("System") {
	case "on":
		c.powerOn()
	case "standby":
		c.on = false
	default:
		http.Error(w, "bad System value", http.StatusBadRequest)
	}
}

func (c *Camera) sonyPreset(w http.ResponseWriter, r *http.Request) {
	preset, _, _ := strings.Cut(r.URL.Query().Get("PresetCall"), ",")
	n, err := strconv.Atoi(preset)
	if err != nil || n < 1 || n > 10 {
		http.Error(w, "bad PresetCall", http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.move(n)
}
