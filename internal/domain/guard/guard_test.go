package guard_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/guard"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics/metricstest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGuard_Do(t *testing.T) {
	Convey("Given a guard for a camera", t, func() {
		var buf bytes.Buffer
		sink := metricstest.NewRecorder()
		g := guard.New("http://cam-1", "Failed to communicate with camera",
			guard.WithSink(sink),
			guard.WithLogger(logger.New(&buf)),
		)
		ctx := context.Background()

		Convey("When the block succeeds", func() {
			err := g.Do(ctx, func(context.Context) error { return nil })

			Convey("Then nothing is logged or counted", func() {
				So(err, ShouldBeNil)
				So(buf.Len(), ShouldEqual, 0)
				So(sink.TotalErrors("http://cam-1"), ShouldEqual, 0)
			})
		})

		Convey("When the block fails with a device error", func() {
			cause := &faults.DeviceCommError{Camera: "http://cam-1", Op: "move", Status: 500, Err: errors.New("boom")}
			err := g.Do(ctx, func(context.Context) error { return cause })

			Convey("Then it is swallowed, logged at warn and counted by kind", func() {
				So(err, ShouldEqual, cause)
				So(buf.String(), ShouldContainSubstring, "level=WARN")
				So(buf.String(), ShouldContainSubstring, "Failed to communicate with camera")
				So(sink.Errors("http://cam-1", faults.KindDeviceComm), ShouldEqual, 1)
			})
		})

		Convey("When the block fails with an unrecognised error", func() {
			_ = g.Do(ctx, func(context.Context) error { return errors.New("weird") })

			Convey("Then it is logged at error level and counted", func() {
				So(buf.String(), ShouldContainSubstring, "level=ERROR")
				So(sink.Errors("http://cam-1", faults.KindUnknown), ShouldEqual, 1)
			})
		})

		Convey("When the block panics", func() {
			var err error
			So(func() {
				err = g.Do(ctx, func(context.Context) error { panic("nil map") })
			}, ShouldNotPanic)

			Convey("Then the panic is converted into a counted error", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), "nil map"), ShouldBeTrue)
				So(sink.Errors("http://cam-1", faults.KindPanic), ShouldEqual, 1)
			})
		})

		Convey("When the block stops because the context was cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := g.Do(cctx, func(c context.Context) error { return c.Err() })

			Convey("Then it is not treated as a failure", func() {
				So(err, ShouldBeNil)
				So(sink.TotalErrors("http://cam-1"), ShouldEqual, 0)
			})
		})

		Convey("When the block times out", func() {
			_ = g.Do(ctx, func(context.Context) error { return context.DeadlineExceeded })

			Convey("Then it is a transport-class timeout", func() {
				So(buf.String(), ShouldContainSubstring, "level=WARN")
				So(sink.Errors("http://cam-1", faults.KindTimeout), ShouldEqual, 1)
			})
		})
	})
}
