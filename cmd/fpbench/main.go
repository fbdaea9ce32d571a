package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:   "fpbench",
		Usage:  "Benchmark MLP training on Fashion-MNIST at double, single and half precision",
		Flags:  runFlags(true),
		Action: rootAction,
		Commands: []*cli.Command{
			runCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
