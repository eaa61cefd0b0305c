package simulator_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/camctl/internal/adapters/device"
	"github.com/okian/camctl/internal/adapters/opencast"
	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/internal/simulator"
	"github.com/okian/camctl/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestSite_Opencast(t *testing.T) {
	convey.Convey("Given a simulated site with two agents", t, func() {
		now := time.Now().Truncate(time.Second)
		site := simulator.NewSite(simulator.Config{
			Agents: 2, Lead: time.Minute, Length: time.Hour, Gap: time.Hour, Events: 3,
		}, now)
		srv := httptest.NewServer(site)
		defer srv.Close()
		ctx := context.Background()
		cutoff := now.Add(24 * time.Hour)

		for _, format := range []string{opencast.FormatJSON, opencast.FormatICS} {
			convey.Convey("When fetching the "+format+" calendar", func() {
				client, err := opencast.NewClient(srv.URL, opencast.WithFormat(format), opencast.WithLogger(logger.NewNop()))
				convey.So(err, convey.ShouldBeNil)
				events, err := client.Fetch(ctx, "room-2", cutoff)

				convey.Convey("Then every scheduled lecture is returned", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(len(events), convey.ShouldEqual, 3)
					convey.So(events[0].Title, convey.ShouldEqual, "Lecture 1")
					convey.So(events[0].Start.Equal(now.Add(time.Minute)), convey.ShouldBeTrue)
					convey.So(events[1].Start.Equal(now.Add(2*time.Hour+time.Minute)), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the server is told to fail", func() {
			site.Opencast.FailNext(1)
			client, _ := opencast.NewClient(srv.URL, opencast.WithLogger(logger.NewNop()))
			_, err := client.Fetch(ctx, "room-1", cutoff)
			_, err2 := client.Fetch(ctx, "room-1", cutoff)

			convey.Convey("Then only that request fails", func() {
				convey.So(faults.KindOf(err), convey.ShouldEqual, faults.KindScheduleFetch)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(site.Opencast.Requests(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When verifying agents", func() {
			client, _ := opencast.NewClient(srv.URL, opencast.WithLogger(logger.NewNop()))
			convey.So(client.VerifyAgent(ctx, "room-1"), convey.ShouldBeNil)
			convey.So(errors.Is(client.VerifyAgent(ctx, "room-9"), opencast.ErrAgentNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When opencast requires credentials", func() {
			site.Opencast.RequireAuth("admin", "opencast")
			anon, _ := opencast.NewClient(srv.URL, opencast.WithLogger(logger.NewNop()))
			authed, _ := opencast.NewClient(srv.URL, opencast.WithCredentials("admin", "opencast"), opencast.WithLogger(logger.NewNop()))
			_, errAnon := anon.Fetch(ctx, "room-1", cutoff)
			_, errAuthed := authed.Fetch(ctx, "room-1", cutoff)
			convey.So(errAnon, convey.ShouldNotBeNil)
			convey.So(errAuthed, convey.ShouldBeNil)
		})
	})
}

func TestSite_Cameras(t *testing.T) {
	convey.Convey("Given a simulated site", t, func() {
		site := simulator.NewSite(simulator.Config{Agents: 1}, time.Now())
		srv := httptest.NewServer(site)
		defer srv.Close()
		cfg := site.CamctlConfig(srv.URL)
		factory := device.NewFactory()
		ctx := context.Background()

		convey.Convey("Then the generated config validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(len(cfg.Cameras["room-1"]), convey.ShouldEqual, 2)
		})

		for _, cc := range cfg.Cameras["room-1"] {
			convey.Convey("When driving the "+cc.Type+" camera", func() {
				dev, err := factory.New(model.Vendor(cc.Type), device.Config{
					URL: cc.URL, PollInterval: time.Millisecond, Logger: logger.NewNop(),
				})
				convey.So(err, convey.ShouldBeNil)
				cam := site.Cameras[cc.URL[len(srv.URL):]]
				convey.So(cam, convey.ShouldNotBeNil)
				cam.SetStandby(2)

				power, err := dev.QueryPower(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(power, convey.ShouldEqual, model.PowerStandby)
				convey.So(dev.SetPower(ctx, true), convey.ShouldBeNil)
				power, err = dev.QueryPower(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(power, convey.ShouldEqual, model.PowerOn)
				convey.So(dev.MoveToPreset(ctx, 3), convey.ShouldBeNil)

				convey.Convey("Then the camera is on and at the preset", func() {
					convey.So(cam.On(), convey.ShouldBeTrue)
					convey.So(cam.Preset(), convey.ShouldEqual, 3)
					convey.So(cam.Moves(), convey.ShouldResemble, []int{3})
				})
			})
		}

		convey.Convey("When a camera is down", func() {
			cc := cfg.Cameras["room-1"][0]
			site.Cameras[cc.URL[len(srv.URL):]].SetDown(true)
			dev, _ := factory.New(model.Vendor(cc.Type), device.Config{URL: cc.URL, Logger: logger.NewNop()})

			convey.Convey("Then commands fail as device errors", func() {
				err := dev.MoveToPreset(ctx, 1)
				convey.So(faults.KindOf(err), convey.ShouldEqual, faults.KindDeviceComm)
			})
		})
	})
}
