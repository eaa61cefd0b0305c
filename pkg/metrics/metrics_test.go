package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
			WithConstLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the manager writes to the given registry", func() {
			So(manager.Registry(), ShouldEqual, registry)
			manager.RequestError("agent-1", "ScheduleFetchError")

			families, err := registry.Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "test_unit_request_errors_total")
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a fresh manager", t, func() {
		m := NewManager()

		Convey("When request errors are recorded", func() {
			m.RequestError("agent-1", "ScheduleFetchError")
			m.RequestError("agent-1", "ScheduleFetchError")
			m.RequestError("http://cam", "DeviceCommError")

			Convey("Then they are counted per resource and kind", func() {
				So(testutil.ToFloat64(m.requestErrors.WithLabelValues("agent-1", "ScheduleFetchError")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.requestErrors.WithLabelValues("http://cam", "DeviceCommError")), ShouldEqual, 1)
			})
		})

		Convey("When a calendar update is recorded", func() {
			at := time.Unix(1_700_000_000, 0)
			m.CalendarUpdated("agent-1", at)
			m.CalendarUpdated("agent-1", at.Add(time.Minute))

			Convey("Then total and last update time are set", func() {
				So(testutil.ToFloat64(m.calendarUpdateTotal.WithLabelValues("agent-1")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.calendarUpdateTime.WithLabelValues("agent-1")), ShouldEqual, float64(at.Add(time.Minute).Unix()))
			})
		})

		Convey("When camera observations are recorded", func() {
			m.CameraExpected("http://cam", 10)
			m.CameraPosition("http://cam", 1)
			m.CameraPower("http://cam", true)
			m.CameraMode("http://cam", false)

			Convey("Then the gauges reflect them", func() {
				So(testutil.ToFloat64(m.cameraPositionWanted.WithLabelValues("http://cam")), ShouldEqual, 10)
				So(testutil.ToFloat64(m.cameraPosition.WithLabelValues("http://cam")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cameraStatus.WithLabelValues("http://cam")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cameraControlMode.WithLabelValues("http://cam")), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithMetricsEnabled(false))

		Convey("Then observations are dropped", func() {
			m.RequestError("agent-1", "ScheduleFetchError")
			So(testutil.ToFloat64(m.requestErrors.WithLabelValues("agent-1", "ScheduleFetchError")), ShouldEqual, 0)
		})
	})
}

func TestMetricsHandler(t *testing.T) {
	Convey("Given a manager with one observation", t, func() {
		m := NewManager()
		m.CameraPosition("http://cam", 3)

		Convey("When the handler is scraped", func() {
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then the exposition contains the gauge", func() {
				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(string(body), `camctl_camera_position{camera="http://cam"} 3`), ShouldBeTrue)
			})
		})
	})

	Convey("Given the Discard sink", t, func() {
		var s Sink = Discard{}
		So(func() {
			s.RequestError("a", "b")
			s.CameraPower("c", true)
		}, ShouldNotPanic)
	})
}
