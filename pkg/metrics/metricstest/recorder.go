// Package metricstest provides an in-memory metrics.Sink for tests.
package metricstest

import (
	"sync"
	"time"

	"github.com/okian/camctl/pkg/metrics"
)

// Recorder keeps every observation in memory. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	errors     map[[2]string]int
	updates    map[string]int
	lastUpdate map[string]time.Time
	expected   map[string][]int
	positions  map[string][]int
	power      map[string]bool
	automatic  map[string]bool
}

var _ metrics.Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		errors:     make(map[[2]string]int),
		updates:    make(map[string]int),
		lastUpdate: make(map[string]time.Time),
		expected:   make(map[string][]int),
		positions:  make(map[string][]int),
		power:      make(map[string]bool),
		automatic:  make(map[string]bool),
	}
}

func (r *Recorder) RequestError(resource, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[[2]string{resource, kind}]++
}

func (r *Recorder) CalendarUpdated(agent string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[agent]++
	r.lastUpdate[agent] = at
}

func (r *Recorder) CameraExpected(camera string, preset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expected[camera] = append(r.expected[camera], preset)
}

func (r *Recorder) CameraPosition(camera string, preset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[camera] = append(r.positions[camera], preset)
}

func (r *Recorder) CameraPower(camera string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.power[camera] = on
}

func (r *Recorder) CameraMode(camera string, automatic bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.automatic[camera] = automatic
}

// Errors returns how often (resource, kind) was counted.
func (r *Recorder) Errors(resource, kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[[2]string{resource, kind}]
}

// TotalErrors returns the number of errors counted for resource, any kind.
func (r *Recorder) TotalErrors(resource string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, v := range r.errors {
		if k[0] == resource {
			n += v
		}
	}
	return n
}

// Updates returns the number of successful calendar updates of agent.
func (r *Recorder) Updates(agent string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[agent]
}

// Expected returns every expected-position observation of camera in order.
func (r *Recorder) Expected(camera string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.expected[camera]...)
}

// Positions returns every confirmed-position observation of camera in order.
func (r *Recorder) Positions(camera string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.positions[camera]...)
}

// Power returns the last reported power state of camera.
func (r *Recorder) Power(camera string) (on, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	on, ok = r.power[camera]
	return on, ok
}

// Automatic returns the last reported control mode of camera.
func (r *Recorder) Automatic(camera string) (automatic, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	automatic, ok = r.automatic[camera]
	return automatic, ok
}
