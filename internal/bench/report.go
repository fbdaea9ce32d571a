package bench

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/tui"
	"github.com/goccy/go-json"

	"github.com/samcharles93/fpbench/internal/precision"
	"github.com/samcharles93/fpbench/internal/version"
)

// Report is the outcome of one benchmark invocation.
type Report struct {
	RunID     string            `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Elapsed   time.Duration     `json:"elapsed_ns"`
	Version   version.Info      `json:"version"`
	Host      Host              `json:"host"`
	Config    ReportConfig      `json:"config"`
	Results   []PrecisionResult `json:"results"`
}

// ReportConfig echoes the settings that shaped the measurements.
type ReportConfig struct {
	Runs         int  `json:"runs"`
	Epochs       int  `json:"epochs"`
	BatchSize    int  `json:"batch_size"`
	Warmup       bool `json:"warmup"`
	TrainSamples int  `json:"train_samples"`
	TestSamples  int  `json:"test_samples"`
}

// PrecisionResult aggregates every run at one precision.
type PrecisionResult struct {
	Precision      precision.Precision `json:"precision"`
	Bits           int                 `json:"bits"`
	AverageSeconds float64             `json:"average_seconds"`
	MinSeconds     float64             `json:"min_seconds"`
	MaxSeconds     float64             `json:"max_seconds"`
	Throughput     float64             `json:"samples_per_second"`
	// Accuracy and Loss belong to the last run's model.
	Accuracy     float64     `json:"accuracy"`
	Loss         float64     `json:"loss"`
	MeanAccuracy *float64    `json:"mean_accuracy,omitempty"`
	ParamBytes   int         `json:"param_bytes,omitempty"`
	Runs         []RunResult `json:"runs"`
}

// RunResult is one timed fit.
type RunResult struct {
	Run       int           `json:"run"`
	Elapsed   time.Duration `json:"-"`
	Seconds   float64       `json:"seconds"`
	TrainLoss float64       `json:"train_loss"`
	Accuracy  *float64      `json:"accuracy,omitempty"`
}

// Format selects a report writer.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

var ErrFormat = errors.New("unknown report format")

// ParseFormat accepts text, table or json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatTable, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w %q (want text, table or json)", ErrFormat, s)
	}
}

// Write renders r in the given format.
func Write(w io.Writer, f Format, r *Report) error {
	switch f {
	case FormatText, "":
		return WriteText(w, r)
	case FormatTable:
		return WriteTable(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return fmt.Errorf("%w %q", ErrFormat, string(f))
	}
}

// label pads precision names to a common width, so "half" reads "half   "
// once the following space is added.
func label(p precision.Precision) string {
	return fmt.Sprintf("%-6s", p.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteText prints the two result blocks: average times, then final-model
// accuracies.
func WriteText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "---RESULTS---")
	for _, res := range r.Results {
		fmt.Fprintf(bw, "Average training time in %s precision: %s seconds\n", label(res.Precision), formatFloat(res.AverageSeconds))
	}
	fmt.Fprintln(bw, "-------------")
	for _, res := range r.Results {
		fmt.Fprintf(bw, "Accuracy with %s precision: %s\n", label(res.Precision), formatFloat(res.Accuracy))
	}
	for _, res := range r.Results {
		if res.MeanAccuracy != nil {
			fmt.Fprintf(bw, "Mean accuracy over runs with %s precision: %s\n", label(res.Precision), formatFloat(*res.MeanAccuracy))
		}
	}
	return bw.Flush()
}

// WriteTable prints a host summary followed by one row per precision.
func WriteTable(w io.Writer, r *Report) error {
	h := r.Host
	host := [][]string{
		{"run", r.RunID},
		{"version", r.Version.String()},
		{"cpu", fmt.Sprintf("%s (%d cores, %d threads)", h.CPU, h.PhysicalCores, h.LogicalCores)},
		{"features", strings.Join(h.Features, " ")},
		{"memory", humanize.Bytes(h.TotalMemory)},
		{"heap", humanize.Bytes(h.HeapAlloc)},
		{"platform", fmt.Sprintf("%s/%s gomaxprocs=%d", h.OS, h.Arch, h.GoMaxProcs)},
		{"dataset", fmt.Sprintf("%s train, %s test", humanize.Comma(int64(r.Config.TrainSamples)), humanize.Comma(int64(r.Config.TestSamples)))},
		{"schedule", fmt.Sprintf("%d runs x %d epochs, batch %d, warmup=%t", r.Config.Runs, r.Config.Epochs, r.Config.BatchSize, r.Config.Warmup)},
	}
	tui.Table(w, []string{"name", "value"}, host)

	columns := []string{"precision", "bits", "avg", "min", "max", "samples/s", "params", "accuracy", "loss"}
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		acc := fmt.Sprintf("%.4f", res.Accuracy)
		if res.MeanAccuracy != nil {
			acc += fmt.Sprintf(" (mean %.4f)", *res.MeanAccuracy)
		}
		rows = append(rows, []string{
			res.Precision.String(),
			strconv.Itoa(res.Bits),
			seconds(res.AverageSeconds),
			seconds(res.MinSeconds),
			seconds(res.MaxSeconds),
			humanize.CommafWithDigits(res.Throughput, 0),
			humanize.Bytes(uint64(res.ParamBytes)),
			acc,
			fmt.Sprintf("%.4f", res.Loss),
		})
	}
	tui.Table(w, columns, rows)
	return nil
}

func seconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond).String()
}

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
