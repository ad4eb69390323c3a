package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mlgate/internal/adapters/repository"
	"github.com/okian/mlgate/internal/config"
	"github.com/okian/mlgate/pkg/logger"
)

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application", t, func() {
		convey.So(logger.InitWithFormat(logger.FormatText, io.Discard), convey.ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dir := t.TempDir()
		cfg := config.New()
		cfg.ArtifactDir = dir
		cfg.AuditWorkerCount = 1

		store, err := repository.OpenSQLite(ctx, "file:"+filepath.Join(dir, "registry.db"))
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		svc := newService(cfg, store, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		// The page handler loads from the server it is mounted on.
		var handler http.Handler
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(w, r)
		}))
		defer srv.Close()
		cfg.DashboardURL = srv.URL

		mux, err := buildMux(ctx, cfg, svc)
		convey.So(err, convey.ShouldBeNil)
		handler = mux

		convey.So(os.WriteFile(filepath.Join(dir, "model.bin"), []byte("weights"), 0o600), convey.ShouldBeNil)

		post := func(path, body string) int {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			return resp.StatusCode
		}
		getBody := func(path string) (int, string) {
			resp, err := http.Get(srv.URL + path)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			convey.So(err, convey.ShouldBeNil)
			return resp.StatusCode, string(b)
		}

		convey.Convey("When a model is registered, approved and deployed", func() {
			convey.So(post("/models", `{"run_id":"run-42","path":"model.bin","metrics":{"accuracy":0.91}}`), convey.ShouldEqual, http.StatusCreated)
			convey.So(post("/approve_model", `{"run_id":"run-42"}`), convey.ShouldEqual, http.StatusOK)
			convey.So(post("/deploy", `{"run_id":"run-42"}`), convey.ShouldEqual, http.StatusOK)

			convey.Convey("Then the dashboard page renders the deployment", func() {
				code, body := getBody("/")
				convey.So(code, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldContainSubstring, "<h2>Deployed Model</h2><pre>run-42</pre>")
				convey.So(body, convey.ShouldContainSubstring, "0.91")
				convey.So(body, convey.ShouldNotContainSubstring, `class="error"`)
			})

			convey.Convey("And the API docs and metrics are served", func() {
				code, _ := getBody("/openapi.yaml")
				convey.So(code, convey.ShouldEqual, http.StatusOK)
				code, body := getBody("/healthz")
				convey.So(code, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldContainSubstring, "mlgate_governance_deployments_total")
			})
		})

		convey.Convey("When components are scanned", func() {
			convey.So(post("/scan_sbom", `{"components":[{"name":"fastapi","version":"0.110"}]}`), convey.ShouldEqual, http.StatusOK)

			convey.Convey("Then the SBOM lands under the artifact directory", func() {
				matches, err := filepath.Glob(filepath.Join(dir, "sbom", "sbom_*.json"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(matches), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When nothing is deployed", func() {
			_, body := getBody("/")

			convey.Convey("Then the deployed region reads none", func() {
				convey.So(body, convey.ShouldContainSubstring, "<h2>Deployed Model</h2><pre>none</pre>")
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating system metrics directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
