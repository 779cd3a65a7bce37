package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/config"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/resilience"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/service"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// app carries what every subcommand shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

func (a *app) consolidator() *service.Consolidator {
	opener := workbook.NewFileOpener(resilience.Config{
		MaxRetries:     a.cfg.OpenRetries,
		InitialBackoff: a.cfg.OpenBackoff,
	}, a.logger)
	return service.NewConsolidator(opener, service.Options{
		FailOnUnreadable: a.cfg.FailOnUnreadable,
		MaxConcurrency:   a.cfg.MaxConcurrency,
		SheetCacheTTL:    a.cfg.SheetCacheTTL,
	}, a.metrics, a.logger)
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&consolidateCmd{}, "")

	flag.Parse()
	status := commander.Execute(context.Background(), a)
	logger.Sync()
	os.Exit(int(status))
}
