package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/handler"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type serveCmd struct {
	port int
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the consolidation HTTP API" }
func (*serveCmd) Usage() string {
	return `ceiassembler serve [-port <port>]

  Starts the HTTP API. Statement workbooks are uploaded as multipart
  "files" to /v1/consolidate or /v1/consolidate/{kind}.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.port, "port", 0, "Port to listen on (defaults to PORT).")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := args[0].(*app)
	cfg, logger := a.cfg, a.logger

	port := cfg.Port
	if c.port > 0 {
		port = c.port
	}

	logger.Info("configuration loaded",
		zap.Int("port", port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int64("max_upload_size", cfg.MaxUploadSize),
		zap.Duration("sheet_cache_ttl", cfg.SheetCacheTTL),
		zap.Bool("fail_on_unreadable", cfg.FailOnUnreadable),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ceiassembler")
	if err != nil {
		logger.Error("failed to init tracer", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer shutdown(context.Background())

	// --- Router ---
	router := handler.NewRouter(a.consolidator(), a.metrics, cfg.MaxUploadSize, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	failed := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-failed:
		logger.Error("server failed", zap.Error(err))
		return subcommands.ExitFailure
	}

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return subcommands.ExitFailure
	}

	logger.Info("server stopped")
	return subcommands.ExitSuccess
}
