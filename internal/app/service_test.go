package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fakeIntegration struct {
	name     string
	commands map[string]service.Command
}

func (f fakeIntegration) Name() string                         { return f.name }
func (f fakeIntegration) Commands() map[string]service.Command { return f.commands }

type fakeFetcher struct {
	calls atomic.Int32
	batch []model.Incident
}

func (f *fakeFetcher) FetchIncidents(context.Context) ([]model.Incident, error) {
	if f.calls.Add(1) > 1 {
		return nil, nil
	}
	return f.batch, nil
}

func echo() fakeIntegration {
	return fakeIntegration{
		name: "echo",
		commands: map[string]service.Command{
			"say": func(_ context.Context, args types.Args) (*model.Result, error) {
				return model.Text(args.String("msg")), nil
			},
			"fail": func(context.Context, types.Args) (*model.Result, error) {
				return nil, errors.New("vendor down")
			},
			"panic": func(context.Context, types.Args) (*model.Result, error) {
				panic("boom")
			},
		},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats.Started, ShouldBeFalse)
			So(stats.Integrations, ShouldEqual, 0)
			So(stats.Polling, ShouldBeFalse)
			So(stats.Poller, ShouldBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithIntegration(echo()),
			service.WithQueueSize(50),
			service.WithLogger(logger.Get()),
		)

		Convey("Then the integration and its commands should be listed", func() {
			So(svc.Integrations(), ShouldResemble, map[string][]string{
				"echo": {"fail", "panic", "say"},
			})
			So(svc.GetStats().QueueSize, ShouldEqual, 50)
			So(svc.GetStats().Commands, ShouldEqual, 3)
		})
	})
}

func TestService_Execute(t *testing.T) {
	Convey("Given a service with the echo integration", t, func() {
		svc := service.New(service.WithIntegration(echo()))
		ctx := context.Background()

		Convey("When a known command is executed", func() {
			res, err := svc.Execute(ctx, service.NewInvocation("echo", "say", types.Args{"msg": "hi"}))

			Convey("Then its result should be returned", func() {
				So(err, ShouldBeNil)
				So(res.ReadableOutput, ShouldEqual, "hi")
			})
		})

		Convey("When the invocation has no id or args", func() {
			res, err := svc.Execute(ctx, service.Invocation{Integration: "echo", Command: "say"})

			Convey("Then it should still run", func() {
				So(err, ShouldBeNil)
				So(res.ReadableOutput, ShouldEqual, "")
			})
		})

		Convey("When the integration is unknown", func() {
			_, err := svc.Execute(ctx, service.NewInvocation("nope", "say", nil))

			Convey("Then ErrUnknownIntegration should be returned", func() {
				So(errors.Is(err, service.ErrUnknownIntegration), ShouldBeTrue)
			})
		})

		Convey("When the command is unknown", func() {
			_, err := svc.Execute(ctx, service.NewInvocation("echo", "shout", nil))

			Convey("Then ErrUnknownCommand should be returned", func() {
				So(errors.Is(err, service.ErrUnknownCommand), ShouldBeTrue)
			})
		})

		Convey("When the command fails", func() {
			_, err := svc.Execute(ctx, service.NewInvocation("echo", "fail", nil))

			Convey("Then the error should be passed through", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldEqual, "vendor down")
			})
		})

		Convey("When the command panics", func() {
			res, err := svc.Execute(ctx, service.NewInvocation("echo", "panic", nil))

			Convey("Then the panic should be converted into an error", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, service.ErrCommandPanic), ShouldBeTrue)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a poller", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Incidents should be empty before start", func() {
			So(svc.Incidents(ctx, 10), ShouldBeEmpty)
		})

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats().Started, ShouldBeTrue)
			So(svc.GetStats().QueueLength, ShouldEqual, 0)
			svc.Stop()
			svc.Stop()

			Convey("Then it should report stopped with a closed queue", func() {
				So(svc.GetStats().Started, ShouldBeFalse)
				So(svc.GetStats().QueueClosed, ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with a poller", t, func() {
		fetcher := &fakeFetcher{batch: []model.Incident{
			{Name: "a", Occurred: "2024-01-01T00:00:00Z", RawJSON: `{"id":"a"}`},
			{Name: "b", Occurred: "2024-01-02T00:00:00Z", RawJSON: `{"id":"b"}`},
			{Name: "c", Occurred: "2024-01-03T00:00:00Z", RawJSON: `{"id":"c"}`},
		}}
		svc := service.New(service.WithPoller(fetcher, time.Hour))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("The first poll should run immediately", func() {
			So(svc.GetStats().Polling, ShouldBeTrue)
			So(waitFor(func() bool { return svc.GetStats().QueueLength == 3 }), ShouldBeTrue)

			So(waitFor(func() bool {
				p := svc.GetStats().Poller
				return p != nil && p.Enqueued == 3
			}), ShouldBeTrue)
			poller := svc.GetStats().Poller
			So(poller.Runs, ShouldEqual, 1)
			So(poller.Dropped, ShouldEqual, 0)
			So(poller.LastRunUnix, ShouldBeGreaterThan, 0)

			Convey("And incidents should drain in order", func() {
				first := svc.Incidents(ctx, 2)
				So(len(first), ShouldEqual, 2)
				So(first[0].Name, ShouldEqual, "a")
				So(first[1].Name, ShouldEqual, "b")

				rest := svc.Incidents(ctx, 0)
				So(len(rest), ShouldEqual, 1)
				So(rest[0].Name, ShouldEqual, "c")
				So(svc.Incidents(ctx, 0), ShouldBeEmpty)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
