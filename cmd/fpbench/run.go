package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fpbench/internal/bench"
	"github.com/samcharles93/fpbench/internal/dataset"
	"github.com/samcharles93/fpbench/internal/logger"
	"github.com/samcharles93/fpbench/internal/nn"
	"github.com/samcharles93/fpbench/internal/precision"
	"github.com/samcharles93/fpbench/internal/trainer"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Train the benchmark MLP at each precision and report times and accuracies",
		Flags:  runFlags(false),
		Before: runBefore,
		Action: runAction,
	}
}

// runBefore overlays the config file on unset flags and installs the logger.
func runBefore(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	applyRunConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	log, err := logger.New(os.Stderr, logger.Options{
		Level:  level,
		Format: logger.Format(logFormat),
	})
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), nil
}

// rootAction runs the benchmark when no subcommand is named. It has no Before
// hook of its own so subcommands such as version never read the config.
func rootAction(ctx context.Context, cmd *cli.Command) error {
	ctx, err := runBefore(ctx, cmd)
	if err != nil {
		return err
	}
	return runAction(ctx, cmd)
}

// validateRunFlags rejects counts the benchmark cannot honour.
func validateRunFlags() error {
	if epochs < 1 || runs < 1 || batchSize < 1 {
		return fmt.Errorf("--epochs, --runs and --batch-size must be at least 1 (got %d, %d, %d)", epochs, runs, batchSize)
	}
	if limit < 0 || synthetic < 0 {
		return fmt.Errorf("--limit and --synthetic must not be negative")
	}
	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	precs, err := precision.ParseList(precisions)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	outFormat, err := bench.ParseFormat(format)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	if err := validateRunFlags(); err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	ds, err := loadDataset(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: load dataset: %v", err), 1)
	}

	modelCfg := nn.DefaultConfig()
	modelCfg.Seed = seed
	tr := trainer.New(trainer.Config{
		Epochs:    int(epochs),
		BatchSize: int(batchSize),
		Seed:      seed,
	})
	driver, err := bench.New(bench.Config{
		Runs:             int(runs),
		Precisions:       precs,
		SkipWarmup:       noWarmup,
		Model:            modelCfg,
		EvaluateEveryRun: evalEveryRun,
	}, bench.WithTrainer(tr), bench.WithHooks(bench.Hooks{
		OnPhase: func(p bench.Phase) { log.Info("entering phase", "phase", p.String()) },
	}))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	report, err := driver.Run(ctx, ds)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: benchmark: %v", err), 1)
	}
	log.Info("benchmark complete", "run_id", report.RunID, "elapsed", report.Elapsed.Round(time.Millisecond))

	if err := bench.Write(os.Stdout, outFormat, report); err != nil {
		return cli.Exit(fmt.Sprintf("error: write report: %v", err), 1)
	}
	return nil
}

func loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if synthetic > 0 {
		n := int(synthetic)
		logger.FromContext(ctx).Info("using synthetic dataset", "train", n, "test", max(n/6, 1))
		return dataset.Synthetic(n, max(n/6, 1), seed), nil
	}
	return dataset.Load(ctx, dataset.Options{
		Dir:      dataDir,
		Download: download,
		Verify:   verify,
		Limit:    int(limit),
	})
}
