package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /data/fashion
epochs: 3
runs: 2
precisions: [half, single]
seed: 42
format: json
download: false
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DataDir != "/data/fashion" || cfg.Format != "json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Epochs == nil || *cfg.Epochs != 3 || cfg.Runs == nil || *cfg.Runs != 2 {
		t.Fatalf("numeric fields not parsed: %+v", cfg)
	}
	if cfg.Download == nil || *cfg.Download {
		t.Fatalf("download = %v, want explicit false", cfg.Download)
	}
	if cfg.BatchSize != nil {
		t.Fatalf("batch_size should be unset, got %d", *cfg.BatchSize)
	}
	if len(cfg.Precisions) != 2 || cfg.Precisions[0] != "half" {
		t.Fatalf("precisions = %v", cfg.Precisions)
	}
}

func TestLoadConfigMissingFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if _, err := LoadConfig(""); err != nil {
		t.Fatalf("missing default config should be ignored, got %v", err)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing explicit config should fail")
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "epochs: [unterminated\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyRunConfigRespectsExplicitFlags(t *testing.T) {
	three, nine := int64(3), int64(9)
	cfg := Config{
		Epochs:     &nine,
		Runs:       &three,
		Precisions: []string{"half"},
		Format:     "json",
		LogLevel:   "warn",
	}

	cmd := &cli.Command{
		Name:  "fpbench",
		Flags: runFlags(false),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyRunConfig(c, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"fpbench", "--epochs", "2", "--format", "table"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if epochs != 2 {
		t.Errorf("epochs = %d, want explicit 2", epochs)
	}
	if format != "table" {
		t.Errorf("format = %q, want explicit table", format)
	}
	if runs != 3 {
		t.Errorf("runs = %d, want config 3", runs)
	}
	if len(precisions) != 1 || precisions[0] != "half" {
		t.Errorf("precisions = %v, want config [half]", precisions)
	}
	if logLevel != "warn" {
		t.Errorf("log level = %q, want config warn", logLevel)
	}
	if batchSize != 32 {
		t.Errorf("batch size = %d, want default 32", batchSize)
	}
}

func TestValidateRunFlagsRejectsZeroCounts(t *testing.T) {
	saved := [5]int64{epochs, runs, batchSize, limit, synthetic}
	t.Cleanup(func() {
		epochs, runs, batchSize, limit, synthetic = saved[0], saved[1], saved[2], saved[3], saved[4]
	})

	epochs, runs, batchSize, limit, synthetic = 5, 5, 32, 0, 0
	if err := validateRunFlags(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	for _, tc := range []struct {
		name string
		set  func()
	}{
		{"zero runs", func() { runs = 0 }},
		{"zero epochs", func() { epochs = 0 }},
		{"zero batch", func() { batchSize = 0 }},
		{"negative limit", func() { limit = -1 }},
	} {
		epochs, runs, batchSize, limit, synthetic = 5, 5, 32, 0, 0
		tc.set()
		if err := validateRunFlags(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestVersionSkipsConfigLoading(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "fpbench"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fpbench", "config.yaml"), []byte("epochs: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)

	app := &cli.Command{
		Name:     "fpbench",
		Flags:    runFlags(true),
		Action:   rootAction,
		Commands: []*cli.Command{versionCmd()},
	}
	if err := app.Run(context.Background(), []string{"fpbench", "version"}); err != nil {
		t.Fatalf("version with a malformed config: %v", err)
	}
}
