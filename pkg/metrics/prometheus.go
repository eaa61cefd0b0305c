// Package metrics provides Prometheus metrics for the camera control service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink is what the control core reports into. It never reads back.
type Sink interface {
	// RequestError counts a swallowed remote-call failure.
	RequestError(resource, kind string)
	// CalendarUpdated records a successful schedule refresh.
	CalendarUpdated(agent string, at time.Time)
	// CameraExpected records the preset a camera is about to be moved to.
	CameraExpected(camera string, preset int)
	// CameraPosition records the preset a camera confirmed.
	CameraPosition(camera string, preset int)
	// CameraPower records the power state of a camera.
	CameraPower(camera string, on bool)
	// CameraMode records whether a camera is under automatic control.
	CameraMode(camera string, automatic bool)
}

// Manager owns the Prometheus collectors of the service. It implements Sink.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Control metrics
	requestErrors        *prometheus.CounterVec
	calendarUpdateTotal  *prometheus.CounterVec
	calendarUpdateTime   *prometheus.GaugeVec
	cameraPosition       *prometheus.GaugeVec
	cameraPositionWanted *prometheus.GaugeVec
	cameraStatus         *prometheus.GaugeVec
	cameraControlMode    *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var _ Sink = (*Manager)(nil)

// NewManager creates a metrics manager registered on its own registry unless
// WithPrometheusRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "camctl",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.requestErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "request_errors_total",
		Help:        "Number of errors related to remote requests",
		ConstLabels: m.constLabels,
	}, []string{"resource", "type"})

	m.calendarUpdateTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "agent_calendar_update_total",
		Help:        "Number of successful calendar updates",
		ConstLabels: m.constLabels,
	}, []string{"agent"})

	m.calendarUpdateTime = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "agent_calendar_update_time",
		Help:        "Unix time of the last successful calendar update",
		ConstLabels: m.constLabels,
	}, []string{"agent"})

	m.cameraPosition = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "camera_position",
		Help:        "Last position (preset number) a camera moved to",
		ConstLabels: m.constLabels,
	}, []string{"camera"})

	m.cameraPositionWanted = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "camera_position_expected",
		Help:        "The position (preset number) a camera should be in",
		ConstLabels: m.constLabels,
	}, []string{"camera"})

	m.cameraStatus = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "camera_status",
		Help:        "Whether the camera is on (1) or in standby (0)",
		ConstLabels: m.constLabels,
	}, []string{"camera"})

	m.cameraControlMode = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "camera_control_mode",
		Help:        "Whether the camera is controlled automatically (1) or manually (0)",
		ConstLabels: m.constLabels,
	}, []string{"camera"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of admin HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "Admin HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap memory in use in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RequestError increments request_errors{resource,type}.
func (m *Manager) RequestError(resource, kind string) {
	if !m.enabled {
		return
	}
	m.requestErrors.WithLabelValues(resource, kind).Inc()
}

// CalendarUpdated bumps the update counter and stores the update time.
func (m *Manager) CalendarUpdated(agent string, at time.Time) {
	if !m.enabled {
		return
	}
	m.calendarUpdateTotal.WithLabelValues(agent).Inc()
	m.calendarUpdateTime.WithLabelValues(agent).Set(float64(at.Unix()))
}

// CameraExpected sets camera_position_expected.
func (m *Manager) CameraExpected(camera string, preset int) {
	if !m.enabled {
		return
	}
	m.cameraPositionWanted.WithLabelValues(camera).Set(float64(preset))
}

// CameraPosition sets camera_position.
func (m *Manager) CameraPosition(camera string, preset int) {
	if !m.enabled {
		return
	}
	m.cameraPosition.WithLabelValues(camera).Set(float64(preset))
}

// CameraPower sets camera_status.
func (m *Manager) CameraPower(camera string, on bool) {
	if !m.enabled {
		return
	}
	m.cameraStatus.WithLabelValues(camera).Set(boolToFloat(on))
}

// CameraMode sets camera_control_mode.
func (m *Manager) CameraMode(camera string, automatic bool) {
	if !m.enabled {
		return
	}
	m.cameraControlMode.WithLabelValues(camera).Set(boolToFloat(automatic))
}

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	m.systemGCPauseTime.Observe(pauseMs)
}

// RegisterProcessCollectors adds the Go runtime and process collectors.
func (m *Manager) RegisterProcessCollectors() error {
	if err := m.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	return m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Registry returns the Prometheus registry the manager writes to.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
