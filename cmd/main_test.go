package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/internal/config"
	"github.com/okian/tqi/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("TQI_ADDR", ":8080")
			_ = os.Setenv("TQI_MAX_SESSIONS", "5")
			_ = os.Setenv("TQI_RANDOM_SEED", "11")
			defer func() {
				_ = os.Unsetenv("TQI_ADDR")
				_ = os.Unsetenv("TQI_MAX_SESSIONS")
				_ = os.Unsetenv("TQI_RANDOM_SEED")
			}()

			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the service reflects it", func() {
				svc := newService(cfg, logger.Get())
				convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
				defer svc.Stop()

				stats := svc.GetStats()
				convey.So(stats["maxSessions"], convey.ShouldEqual, 5)
				convey.So(svc.Defaults().Weights, convey.ShouldResemble, cfg.Weights())
				convey.So(svc.Defaults().Target, convey.ShouldResemble, cfg.Target())
			})
		})

		convey.Convey("When the address is empty", func() {
			_ = os.Setenv("TQI_ADDR", "")
			defer func() { _ = os.Unsetenv("TQI_ADDR") }()

			convey.Convey("Then configuration loading fails", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the assembled mux", t, func() {
		ctx := context.Background()
		svc := newService(config.New(), logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, svc)

		convey.Convey("Then API and docs routes are both served", func() {
			for _, path := range []string{"/", "/healthz", "/stats", "/sessions", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a scenario can be scored end to end", func() {
			body := `{"roster": [{"age": 40, "subject": "math", "edu": 2, "titleLevel": 4}], "plan": {"count": 3}, "seed": 5}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"population_count":4`)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the service metrics updater is cancelled", func() {
			svc := app.New()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns", func() {
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			svc := app.New()

			convey.Convey("Then nothing panics, started or not", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
				convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
				svc.Stop()
			})
		})
	})
}
