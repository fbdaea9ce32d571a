// cpu_features prints the host description the benchmark report embeds, so
// results from different machines can be compared before a full run.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"

	"github.com/samcharles93/fpbench/internal/bench"
)

type output struct {
	GoVersion string     `json:"go_version"`
	Host      bench.Host `json:"host"`
}

func main() {
	out := output{
		GoVersion: runtime.Version(),
		Host:      bench.DetectHost(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
