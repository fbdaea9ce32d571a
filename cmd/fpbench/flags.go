package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fpbench/internal/bench"
	"github.com/samcharles93/fpbench/internal/trainer"
)

var (
	configFile string

	dataDir   string
	download  bool
	verify    bool
	limit     int64
	synthetic int64

	epochs       int64
	runs         int64
	batchSize    int64
	precisions   []string
	noWarmup     bool
	evalEveryRun bool
	seed         int64

	format    string
	logLevel  string
	logFormat string
	debug     bool
)

// runFlags returns fresh flag instances bound to the package variables. local
// keeps the root copies from leaking into subcommands.
func runFlags(local bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/fpbench/config.yaml)",
			Destination: &configFile,
			Local:       local,
		},
	}
	flags = append(flags, dataFlags(local)...)
	flags = append(flags, trainingFlags(local)...)
	flags = append(flags, outputFlags(local)...)
	return flags
}

func dataFlags(local bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "directory holding the Fashion-MNIST IDX files",
			Destination: &dataDir,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "download",
			Usage:       "download missing dataset files",
			Value:       true,
			Destination: &download,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "verify dataset checksums",
			Value:       true,
			Destination: &verify,
			Local:       local,
		},
		&cli.Int64Flag{
			Name:        "limit",
			Usage:       "use only the first N samples of each partition (0 = all)",
			Destination: &limit,
			Local:       local,
		},
		&cli.Int64Flag{
			Name:        "synthetic",
			Usage:       "train on N synthetic images instead of Fashion-MNIST (0 = off)",
			Destination: &synthetic,
			Local:       local,
		},
	}
}

func trainingFlags(local bool) []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "epochs",
			Aliases:     []string{"e"},
			Usage:       "epochs per training run (at least 1)",
			Value:       trainer.DefaultEpochs,
			Destination: &epochs,
			Local:       local,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Aliases:     []string{"r"},
			Usage:       "timed runs per precision (at least 1)",
			Value:       bench.DefaultRuns,
			Destination: &runs,
			Local:       local,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "minibatch size",
			Value:       trainer.DefaultBatchSize,
			Destination: &batchSize,
			Local:       local,
		},
		&cli.StringSliceFlag{
			Name:        "precision",
			Aliases:     []string{"p"},
			Usage:       "precision to benchmark (double, single, half); repeatable",
			Destination: &precisions,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "no-warmup",
			Usage:       "skip the untimed warmup run",
			Destination: &noWarmup,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "eval-every-run",
			Usage:       "evaluate every run's model and report the mean accuracy",
			Destination: &evalEveryRun,
			Local:       local,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "seed for initialisation and shuffling (0 = random)",
			Destination: &seed,
			Local:       local,
		},
	}
}

func outputFlags(local bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "report format (text, table, json)",
			Value:       string(bench.FormatText),
			Destination: &format,
			Local:       local,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
			Local:       local,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
			Local:       local,
		},
	}
}
