package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/okian/soarbridge/internal/adapters/repository"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/config"
	"github.com/okian/soarbridge/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Checkpoint.Backend = config.BackendMemory

		Convey("With no integration enabled nothing is registered", func() {
			svc, err := Build(ctx, cfg, nil)
			So(err, ShouldBeNil)
			So(svc.Integrations(), ShouldBeEmpty)
		})

		Convey("With both integrations enabled", func() {
			cfg.Clarizen.Enabled = true
			cfg.Clarizen.URL = "https://clarizen.invalid/services"
			cfg.Scorecard.Enabled = true
			cfg.Scorecard.APIKey = "key"
			cfg.Scorecard.PollEnabled = true

			svc, err := Build(ctx, cfg, nil)
			So(err, ShouldBeNil)
			integrations := svc.Integrations()
			So(integrations["clarizen"], ShouldContain, "get-user")
			So(integrations["securityscorecard"], ShouldContain, "fetch-incidents")
			So(svc.GetStats().Polling, ShouldBeFalse)

			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats().Polling, ShouldBeTrue)
			svc.Stop()
		})

		Convey("An unusable checkpoint backend fails the build", func() {
			cfg.Scorecard.Enabled = true
			cfg.Checkpoint.Backend = "etcd"
			_, err := Build(ctx, cfg, nil)
			So(errors.Is(err, repository.ErrBackend), ShouldBeTrue)
		})
	})
}

func TestBuiltCommandsReachVendor(t *testing.T) {
	Convey("Given a SecurityScorecard stand-in", t, func() {
		var auth atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth.Store(r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"total":1,"entries":[{"id":"p1","name":"Vendors","privacy":"private"}]}`))
		}))
		defer srv.Close()

		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Checkpoint.Backend = config.BackendMemory
		cfg.Scorecard.Enabled = true
		cfg.Scorecard.BaseURL = srv.URL
		cfg.Scorecard.APIKey = "secret"

		svc, err := Build(ctx, cfg, nil)
		So(err, ShouldBeNil)

		res, err := svc.Execute(ctx, service.NewInvocation("securityscorecard", "securityscorecard-portfolios-get", types.Args{}))
		So(err, ShouldBeNil)
		So(res.ReadableOutput, ShouldContainSubstring, "Vendors")
		So(auth.Load(), ShouldEqual, "Token secret")
	})
}

func TestCheckpointKey(t *testing.T) {
	Convey("Given a file checkpoint store and an empty alert feed", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"entries":[]}`))
		}))
		defer srv.Close()

		ctx := context.Background()
		dir := t.TempDir()
		cfg := config.New(ctx)
		cfg.Checkpoint.Backend = config.BackendFile
		cfg.Checkpoint.Path = dir
		cfg.Scorecard.Enabled = true
		cfg.Scorecard.BaseURL = srv.URL
		cfg.Scorecard.APIKey = "secret"
		cfg.Scorecard.Username = "ops@example.com"

		svc, err := Build(ctx, cfg, nil)
		So(err, ShouldBeNil)

		_, err = svc.Execute(ctx, service.NewInvocation("securityscorecard", "fetch-incidents", types.Args{}))
		So(err, ShouldBeNil)

		Convey("Then the checkpoint is stored under the integration name alone", func() {
			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Name(), ShouldEqual, "securityscorecard.json")
			_, err = os.Stat(filepath.Join(dir, "securityscorecard.json"))
			So(err, ShouldBeNil)
		})
	})
}
