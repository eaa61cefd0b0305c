package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/camctl/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	convey.Convey("Given a lecture from 10:00 to 11:00", t, func() {
		start := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		ev, err := model.NewEvent("Lecture", start, end)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then it is future before the start", func() {
			now := start.Add(-time.Second)
			convey.So(ev.Future(now), convey.ShouldBeTrue)
			convey.So(ev.Active(now), convey.ShouldBeFalse)
		})

		convey.Convey("Then it is active at the exact start", func() {
			convey.So(ev.Active(start), convey.ShouldBeTrue)
			convey.So(ev.Future(start), convey.ShouldBeFalse)
		})

		convey.Convey("Then it is neither active nor future at the end", func() {
			convey.So(ev.Active(end), convey.ShouldBeFalse)
			convey.So(ev.Future(end), convey.ShouldBeFalse)
			convey.So(ev.Over(end), convey.ShouldBeTrue)
		})

		convey.Convey("Then active and future never hold together", func() {
			for offset := -90 * time.Minute; offset <= 90*time.Minute; offset += 7 * time.Minute {
				now := start.Add(offset)
				convey.So(ev.Active(now) && ev.Future(now), convey.ShouldBeFalse)
			}
		})
	})

	convey.Convey("Given the NoEvent sentinel", t, func() {
		now := time.Now()

		convey.Convey("Then it is neither active nor future", func() {
			convey.So(model.NoEvent.Active(now), convey.ShouldBeFalse)
			convey.So(model.NoEvent.Future(now), convey.ShouldBeFalse)
			convey.So(model.NoEvent.IsZero(), convey.ShouldBeTrue)
			convey.So(model.NoEvent.Title, convey.ShouldEqual, "")
		})
	})

	convey.Convey("Given a window that ends before it starts", t, func() {
		start := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
		_, err := model.NewEvent("Broken", start, start.Add(-time.Minute))

		convey.Convey("Then construction is rejected", func() {
			convey.So(errors.Is(err, model.ErrInvalidWindow), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a zero-length window", t, func() {
		start := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
		ev, err := model.NewEvent("Empty", start, start)

		convey.Convey("Then it is accepted but never active or future", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(ev.Active(start), convey.ShouldBeFalse)
			convey.So(ev.Future(start.Add(-time.Minute)), convey.ShouldBeFalse)
		})
	})
}

func TestParseMode(t *testing.T) {
	convey.Convey("Given mode strings", t, func() {
		convey.Convey("Then known modes parse regardless of case", func() {
			m, err := model.ParseMode("Manual")
			convey.So(err, convey.ShouldBeNil)
			convey.So(m, convey.ShouldEqual, model.ModeManual)

			m, err = model.ParseMode(" automatic ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(m, convey.ShouldEqual, model.ModeAutomatic)
		})

		convey.Convey("Then unknown modes fail", func() {
			_, err := model.ParseMode("joystick")
			convey.So(errors.Is(err, model.ErrUnknownMode), convey.ShouldBeTrue)
		})
	})
}
