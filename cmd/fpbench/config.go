package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the fpbench configuration file
// (~/.config/fpbench/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	DataDir    string   `yaml:"data_dir"`
	Download   *bool    `yaml:"download"`
	Epochs     *int64   `yaml:"epochs"`
	Runs       *int64   `yaml:"runs"`
	BatchSize  *int64   `yaml:"batch_size"`
	Precisions []string `yaml:"precisions"`
	Seed       *int64   `yaml:"seed"`

	Format    string `yaml:"format"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fpbench", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyRunConfig applies config file defaults to the run variables when the
// corresponding CLI flag was not explicitly set.
func applyRunConfig(c *cli.Command, cfg Config) {
	if cfg.DataDir != "" && !c.IsSet("data-dir") {
		dataDir = cfg.DataDir
	}
	if cfg.Download != nil && !c.IsSet("download") {
		download = *cfg.Download
	}
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		epochs = *cfg.Epochs
	}
	if cfg.Runs != nil && !c.IsSet("runs") {
		runs = *cfg.Runs
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		batchSize = *cfg.BatchSize
	}
	if len(cfg.Precisions) > 0 && !c.IsSet("precision") {
		precisions = append([]string(nil), cfg.Precisions...)
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.Format != "" && !c.IsSet("format") {
		format = cfg.Format
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}
