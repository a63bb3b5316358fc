package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/usnistgov/dval/internal/config"
	"github.com/usnistgov/dval/pkg/logger"
)

const jobYAML = `
truth:
  species: [cat, dog, cat, bird]
predictions:
  species: [cat, dog, dog, bird]
metrics:
  - metric: f1Macro
  - metric: accuracy
baseline: 0.5
`

func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunJob(t *testing.T) {
	convey.Convey("Given a YAML job file", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := newService(cfg, logger.Discard())
		path := writeJob(t, "job.yaml", jobYAML)

		convey.Convey("When the job runs", func() {
			var out bytes.Buffer
			err := runJob(ctx, svc, path, &out)

			convey.Convey("Then the records are written as JSON", func() {
				convey.So(err, convey.ShouldBeNil)
				var resp struct {
					RunID  string           `json:"runId"`
					Scores []map[string]any `json:"scores"`
				}
				convey.So(json.Unmarshal(out.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.RunID, convey.ShouldNotBeEmpty)
				convey.So(resp.Scores, convey.ShouldHaveLength, 2)
				convey.So(resp.Scores[1]["metric"], convey.ShouldEqual, "accuracy")
				convey.So(resp.Scores[1]["rawValue"], convey.ShouldEqual, 0.75)
				convey.So(resp.Scores[1]["normalizedValue"], convey.ShouldAlmostEqual, 0.5)
			})
		})

		convey.Convey("When cross-entropy is configured", func() {
			cfg.ScoreCrossEntropy = true
			var out bytes.Buffer
			err := runJob(ctx, newService(cfg, logger.Discard()), path, &out)

			convey.Convey("Then every target gains a cross-entropy score", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "crossEntropyNonBinarized")
			})
		})
	})

	convey.Convey("Given a missing job file", t, func() {
		svc := newService(config.New(context.Background()), logger.Discard())
		err := runJob(context.Background(), svc, filepath.Join(t.TempDir(), "absent.json"), &bytes.Buffer{})
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a job without metrics", t, func() {
		svc := newService(config.New(context.Background()), logger.Discard())
		path := writeJob(t, "empty.json", `{"truth": {"a": [1]}, "predictions": {"a": [1]}}`)
		err := runJob(context.Background(), svc, path, &bytes.Buffer{})
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given a configured HTTP server", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := newService(cfg, logger.Discard())
		srv := newHTTPServer(ctx, cfg, svc, logger.Discard())

		convey.Convey("Then it carries the configured timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
			convey.So(srv.ReadTimeout, convey.ShouldEqual, cfg.ReadTimeout())
			convey.So(srv.WriteTimeout, convey.ShouldEqual, cfg.WriteTimeout())
		})

		convey.Convey("Then its routes are registered", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

			rec = httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("Then serve shuts down cleanly", func() {
			err := serve(ctx, cfg, newService(cfg, logger.Discard()), logger.Discard())
			convey.So(err, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given repeated collector registration", t, func() {
		convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)
		convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)
	})
}
