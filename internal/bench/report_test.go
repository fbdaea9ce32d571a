package bench

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/fpbench/internal/precision"
)

func sampleReport() *Report {
	return &Report{
		RunID:  "00000000-0000-0000-0000-000000000001",
		Config: ReportConfig{Runs: 5, Epochs: 5, BatchSize: 32, Warmup: true, TrainSamples: 60000, TestSamples: 10000},
		Host:   Host{CPU: "test cpu", PhysicalCores: 4, LogicalCores: 8, TotalMemory: 16 << 30, OS: "linux", Arch: "amd64", GoMaxProcs: 8},
		Results: []PrecisionResult{
			{Precision: precision.Double, Bits: 64, AverageSeconds: 12.5, MinSeconds: 12, MaxSeconds: 13, Accuracy: 0.875, ParamBytes: 813160},
			{Precision: precision.Single, Bits: 32, AverageSeconds: 7.25, MinSeconds: 7, MaxSeconds: 7.5, Accuracy: 0.8725, ParamBytes: 406580},
			{Precision: precision.Half, Bits: 16, AverageSeconds: 20, MinSeconds: 19, MaxSeconds: 21, Accuracy: 0.5, ParamBytes: 203290},
		},
	}
}

func TestWriteTextMatchesResultBlocks(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))

	want := strings.Join([]string{
		"---RESULTS---",
		"Average training time in double precision: 12.5 seconds",
		"Average training time in single precision: 7.25 seconds",
		"Average training time in half   precision: 20 seconds",
		"-------------",
		"Accuracy with double precision: 0.875",
		"Accuracy with single precision: 0.8725",
		"Accuracy with half   precision: 0.5",
		"",
	}, "\n")
	require.Equal(t, want, buf.String())
}

func TestWriteTextAppendsMeanAccuracy(t *testing.T) {
	t.Parallel()
	r := sampleReport()
	mean := 0.25
	r.Results[2].MeanAccuracy = &mean

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	require.True(t, strings.HasSuffix(buf.String(), "Mean accuracy over runs with half   precision: 0.25\n"))
}

func TestWriteTableListsPrecisions(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleReport()))
	out := buf.String()
	for _, s := range []string{"test cpu", "double", "single", "half", "0.8725", "17 GB", "60,000"} {
		require.Contains(t, out, s)
	}
}

func TestWriteJSONUsesPrecisionLabels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Precision string  `json:"precision"`
			Accuracy  float64 `json:"accuracy"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "00000000-0000-0000-0000-000000000001", decoded.RunID)
	require.Len(t, decoded.Results, 3)
	require.Equal(t, "half", decoded.Results[2].Precision)
	require.InDelta(t, 0.5, decoded.Results[2].Accuracy, 1e-12)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, " table ": FormatTable, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	require.ErrorIs(t, err, ErrFormat)
}
