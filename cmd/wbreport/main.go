// Command wbreport writes charts and exports for one World Bank indicator.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/okian/wbstats/internal/app"
	"github.com/okian/wbstats/internal/config"
	"github.com/okian/wbstats/internal/report"
	"github.com/okian/wbstats/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return 1
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return 1
	}
	if cfg.LogJSON {
		_ = logger.Init(logger.WithOutput(stderr), logger.WithJSON(true))
	}

	flags, err := report.ParseFlags(args, report.Config{
		Indicator: cfg.DefaultIndicator,
		Date:      cfg.DefaultDate,
		OutDir:    cfg.ReportDir,
	}, stderr)
	if errors.Is(err, flag.ErrHelp) {
		report.ShowHelp()
		return 0
	}
	if err != nil {
		return 2
	}
	if flags.Help {
		report.ShowHelp()
		return 0
	}

	level := cfg.LogLevel
	if flags.Verbose {
		level = "debug"
	}
	log := logger.Get()
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	svc := app.NewFromConfig(cfg, log)
	if _, err := report.Run(ctx, svc, &flags.Config, log.Named("report")); err != nil {
		log.Error(ctx, "report failed", logger.Error(err))
		return 1
	}
	return 0
}
