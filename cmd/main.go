package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/usnistgov/dval/internal/adapters/http/api"
	"github.com/usnistgov/dval/internal/adapters/http/swagger"
	app "github.com/usnistgov/dval/internal/app"
	"github.com/usnistgov/dval/internal/config"
	"github.com/usnistgov/dval/pkg/logger"
	"github.com/usnistgov/dval/pkg/metrics"
)

// HTTP server timeout constants.
const (
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Job mode keeps stdout for the records.
	logOut := io.Writer(os.Stdout)
	if cfg.JobPath != "" {
		logOut = os.Stderr
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(logOut)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.SetEnabled(cfg.MetricsEnabled)

	svc := newService(cfg, loggerInstance)

	if cfg.JobPath != "" {
		if err := runJob(ctx, svc, cfg.JobPath, os.Stdout); err != nil {
			loggerInstance.Error(ctx, "job failed", logger.String("job_path", cfg.JobPath), logger.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, svc, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l),
		app.WithCrossEntropy(cfg.ScoreCrossEntropy),
		app.WithOverlapThreshold(cfg.OverlapThreshold),
		app.WithElevenPoint(cfg.UseElevenPoint),
	)
}

// runJob scores the job document at path and writes the response to w.
func runJob(ctx context.Context, svc *app.Service, path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job: %w", err)
	}
	req, err := app.DecodeRequest(data, app.FormatFromPath(path))
	if err != nil {
		return err
	}
	resp, err := svc.Score(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithMaxBodyBytes(cfg.MaxRequestBytes),
		api.WithLogger(l),
	).Register(ctx, mux)
	swagger.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

var runtimeCollectors sync.Once

// registerRuntimeCollectors adds Go runtime and process metrics to the
// service registry.
func registerRuntimeCollectors() {
	runtimeCollectors.Do(func() {
		metrics.GetRegistry().MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) error {
	registerRuntimeCollectors()
	srv := newHTTPServer(ctx, cfg, svc, l)

	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	l.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	l.Info(ctx, "server stopped")
	return nil
}
