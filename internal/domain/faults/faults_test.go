package faults_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/smartystreets/goconvey/convey"
)

func TestKindOf(t *testing.T) {
	convey.Convey("Given the fault kinds", t, func() {
		convey.Convey("Then typed faults report their own kind, also when wrapped", func() {
			err := fmt.Errorf("refresh: %w", &faults.ScheduleFetchError{Agent: "a", Status: 500, Err: errors.New("x")})
			convey.So(faults.KindOf(err), convey.ShouldEqual, faults.KindScheduleFetch)
			convey.So(faults.KindOf(&faults.PresetOutOfRangeError{Preset: 11, Min: 1, Max: 10}), convey.ShouldEqual, faults.KindPresetOutOfRange)
			convey.So(faults.KindOf(&faults.PowerTransitionTimeoutError{Attempts: 3}), convey.ShouldEqual, faults.KindPowerTransition)
		})

		convey.Convey("Then network failures are transport class", func() {
			refused := &url.Error{Op: "Get", URL: "http://cam", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
			convey.So(faults.Transport(refused), convey.ShouldBeTrue)
			convey.So(faults.KindOf(refused), convey.ShouldEqual, faults.KindConnection)
			convey.So(faults.KindOf(context.DeadlineExceeded), convey.ShouldEqual, faults.KindTimeout)
		})

		convey.Convey("Then plain errors are not transport class", func() {
			convey.So(faults.Transport(errors.New("bug")), convey.ShouldBeFalse)
			convey.So(faults.Transport(nil), convey.ShouldBeFalse)
			convey.So(faults.KindOf(nil), convey.ShouldEqual, "")
		})

		convey.Convey("Then messages carry the context", func() {
			err := &faults.DeviceCommError{Camera: "http://cam", Op: "query power", Status: 401, Err: errors.New("unauthorized")}
			convey.So(err.Error(), convey.ShouldContainSubstring, "status 401")
			convey.So(errors.Unwrap(err).Error(), convey.ShouldEqual, "unauthorized")
		})
	})
}
