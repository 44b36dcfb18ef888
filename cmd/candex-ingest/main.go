package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/app"
	"github.com/kailas-cloud/candex/internal/config"
	logpkg "github.com/kailas-cloud/candex/internal/logger"
	"github.com/kailas-cloud/candex/internal/usecase/ingest"
	"github.com/kailas-cloud/candex/internal/version"
)

func main() {
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:    "candex-ingest",
		Usage:   "Copy candidate profiles from the source store into the vector index",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Configuration environment (local, dev, prod)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.Int64Flag{
				Name:    "start-id",
				Usage:   "Resume from this id instead of the resolved cursor when it is higher",
				EnvVars: []string{"START_ID"},
			},
			&cli.BoolFlag{
				Name:    "force-start",
				Usage:   "Start exactly at --start-id even when the index is further ahead",
				EnvVars: []string{"FORCE_START"},
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Records per batch (0 uses the configured page size)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging level (debug, info, warn, error)",
			},
		},
		Action: ingestCommand,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "candex-ingest: %v\n", err)
		os.Exit(1)
	}
}

func ingestCommand(c *cli.Context) error {
	env := c.String("env")

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	opts := ingest.Options{
		StartID:    cfg.Sync.StartID,
		ForceStart: cfg.Sync.ForceStart,
		PageSize:   c.Int("page-size"),
	}
	if c.IsSet("start-id") {
		opts.StartID = c.Int64("start-id")
	}
	if c.IsSet("force-start") {
		opts.ForceStart = c.Bool("force-start")
	}

	logger.Info("Starting ingestion",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int64("start_id", opts.StartID),
		zap.Bool("force_start", opts.ForceStart),
		zap.Int("page_size", opts.PageSize),
	)

	runner := a.NewRunner(prometheus.NewRegistry())
	rep, err := runner.RunSync(ctx, opts)
	if err != nil {
		return fmt.Errorf("sync stopped at cursor %d of %d: %w", rep.Cursor, rep.Target, err)
	}

	logger.Info("Ingestion finished",
		zap.Int64("cursor", rep.Cursor),
		zap.Int64("target", rep.Target),
		zap.Int("batches", rep.Batches),
		zap.Int("written", rep.Written),
		zap.Int("skipped", rep.SkippedTotal()),
		zap.Duration("duration", rep.Duration),
	)
	return nil
}
