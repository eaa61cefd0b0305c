package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/camctl/internal/adapters/worker"
	logging "github.com/okian/camctl/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestPool(t *testing.T) {
	convey.Convey("Given a pool with two loops", t, func() {
		pool := worker.NewPool(worker.WithLogger(logging.NewNop()), worker.WithRestartDelay(time.Millisecond))
		var ticks atomic.Int64
		loop := worker.RunnerFunc(func(ctx context.Context) {
			for {
				ticks.Add(1)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Millisecond):
				}
			}
		})
		convey.So(pool.Add("a", loop), convey.ShouldBeNil)
		convey.So(pool.Add("b", loop), convey.ShouldBeNil)
		convey.So(pool.Len(), convey.ShouldEqual, 2)

		convey.Convey("When started and shut down", func() {
			pool.Start(context.Background())
			time.Sleep(20 * time.Millisecond)
			err := pool.Shutdown(context.Background())

			convey.Convey("Then both loops ran and stopped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ticks.Load(), convey.ShouldBeGreaterThan, 2)
			})

			convey.Convey("Then a second shutdown is a no-op", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When adding after start", func() {
			pool.Start(context.Background())
			defer func() { _ = pool.Shutdown(context.Background()) }()

			convey.So(errors.Is(pool.Add("c", loop), worker.ErrStarted), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a loop that panics once", t, func() {
		pool := worker.NewPool(worker.WithLogger(logging.NewNop()), worker.WithRestartDelay(time.Millisecond))
		var runs atomic.Int64
		_ = pool.Add("flaky", worker.RunnerFunc(func(ctx context.Context) {
			if runs.Add(1) == 1 {
				panic("boom")
			}
			<-ctx.Done()
		}))

		convey.Convey("Then it is restarted", func() {
			pool.Start(context.Background())
			deadline := time.Now().Add(time.Second)
			for runs.Load() < 2 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			convey.So(runs.Load(), convey.ShouldEqual, 2)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a loop that ignores cancellation", t, func() {
		pool := worker.NewPool(worker.WithLogger(logging.NewNop()), worker.WithShutdownTimeout(10*time.Millisecond))
		release := make(chan struct{})
		defer close(release)
		_ = pool.Add("stuck", worker.RunnerFunc(func(context.Context) { <-release }))

		convey.Convey("Then shutdown gives up after the timeout", func() {
			pool.Start(context.Background())
			err := pool.Shutdown(context.Background())
			convey.So(errors.Is(err, worker.ErrShutdownTimeout), convey.ShouldBeTrue)
		})
	})
}
