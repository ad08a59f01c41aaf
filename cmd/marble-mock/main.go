// marble-mock serves a local stand-in for the Marble world-generation API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nabla7/mujoco-experiments/internal/mockapi"
	"github.com/Nabla7/mujoco-experiments/internal/tracing"
	"github.com/Nabla7/mujoco-experiments/pkg/config"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "marble-mock", "env", cfg.Env)
	slog.SetDefault(logger)
	return logger
}

func main() {
	cfgPath := getenv("MARBLE_MOCK_CONFIG_PATH", "")

	cfg, err := config.LoadConfigOptional(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] load config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] invalid config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	tracingShutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  "marble-mock",
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		SampleRatio:  cfg.SampleRatio,
	}, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] init tracing:", err)
		os.Exit(1)
	}

	server := mockapi.NewServer(cfg, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", "addr", addr, "complete_after_polls", cfg.CompleteAfterPolls)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code := waitForExit(sigCh, errCh, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	// Best-effort flush of trace exporter (if enabled).
	if tracingShutdown != nil {
		_ = tracingShutdown(ctx)
	}
	if code != 0 {
		os.Exit(code)
	}
}

// waitForExit blocks until a shutdown signal arrives or the server fails,
// returning the process exit code. Shutdown and tracer flush run after it in
// either case.
func waitForExit(sigCh <-chan os.Signal, errCh <-chan error, logger *slog.Logger) int {
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		return 0
	case err := <-errCh:
		logger.Error("http server failed", "err", err)
		return 1
	}
}
