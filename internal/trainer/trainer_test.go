package trainer

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/fpbench/internal/dataset"
	"github.com/samcharles93/fpbench/internal/logger"
	"github.com/samcharles93/fpbench/internal/nn"
	"github.com/samcharles93/fpbench/internal/precision"
)

// quietContext carries a discarding logger so test runs stay silent.
func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type fakeModel struct {
	in      int
	loss    float64
	batches [][]int
}

func (f *fakeModel) Precision() precision.Precision { return precision.Single }
func (f *fakeModel) InputSize() int                 { return f.in }

func (f *fakeModel) TrainBatch(pixels []float64, labels []int) (float64, int, error) {
	f.batches = append(f.batches, append([]int(nil), labels...))
	for i, y := range labels {
		if pixels[i*f.in] != float64(y) {
			return 0, 0, errMisaligned
		}
	}
	return f.loss, len(labels), nil
}

func (f *fakeModel) Evaluate(_ []float64, labels []int, _ int) (float64, float64, error) {
	return f.loss, 0.5, nil
}

var errMisaligned = errors.New("pixels and labels misaligned")

// indexed builds a partition where sample i has label i and every pixel equal
// to i, so batches can be checked for alignment.
func indexed(n int) *dataset.Partition {
	p := &dataset.Partition{Rows: 1, Cols: 2}
	for i := range n {
		p.Labels = append(p.Labels, i)
		p.Pixels = append(p.Pixels, float64(i), float64(i))
	}
	return p
}

func TestFitVisitsEverySampleOncePerEpoch(t *testing.T) {
	t.Parallel()
	m := &fakeModel{in: 2, loss: 1}
	tr := New(Config{Epochs: 2, BatchSize: 2, Seed: 1})

	res, err := tr.Fit(quietContext(), m, indexed(5))
	require.NoError(t, err)
	require.Len(t, res.Epochs, 2)
	require.Len(t, m.batches, 6)

	for epoch := range 2 {
		var seen []int
		for _, b := range m.batches[epoch*3 : epoch*3+3] {
			seen = append(seen, b...)
		}
		sort.Ints(seen)
		require.Equal(t, []int{0, 1, 2, 3, 4}, seen)
	}
	require.Equal(t, 1.0, res.FinalLoss())
	require.Equal(t, 1.0, res.Epochs[0].Accuracy)
}

func TestFitElapsedComesFromClock(t *testing.T) {
	t.Parallel()
	clock := &stepClock{now: time.Unix(0, 0), step: 10 * time.Millisecond}
	tr := New(Config{Epochs: 2, BatchSize: 4, Seed: 1}, WithClock(clock.Now))

	res, err := tr.Fit(quietContext(), &fakeModel{in: 2}, indexed(4))
	require.NoError(t, err)
	// start, then two readings per epoch, then the final reading.
	require.Equal(t, 50*time.Millisecond, res.Elapsed)
	require.Equal(t, 10*time.Millisecond, res.Epochs[1].Elapsed)
}

func TestFitElapsedNonNegative(t *testing.T) {
	t.Parallel()
	res, err := New(Config{Epochs: 1}).Fit(quietContext(), &fakeModel{in: 2}, indexed(3))
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
	require.GreaterOrEqual(t, res.Throughput(), 0.0)
}

func TestFitDiverged(t *testing.T) {
	t.Parallel()
	for _, loss := range []float64{math.NaN(), math.Inf(1)} {
		_, err := New(Config{Epochs: 3}).Fit(quietContext(), &fakeModel{in: 2, loss: loss}, indexed(3))
		require.ErrorIs(t, err, ErrDiverged)
	}
}

func TestFitEmptyPartition(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}).Fit(quietContext(), &fakeModel{in: 2}, indexed(0))
	require.ErrorIs(t, err, ErrEmptyPartition)

	_, err = Evaluate(quietContext(), &fakeModel{in: 2}, indexed(0), 0)
	require.ErrorIs(t, err, ErrEmptyPartition)
}

func TestFitInputSizeMismatch(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}).Fit(quietContext(), &fakeModel{in: 3}, indexed(2))
	require.Error(t, err)
}

func TestFitCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(quietContext())
	cancel()
	_, err := New(Config{}).Fit(ctx, &fakeModel{in: 2}, indexed(2))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := New(Config{}).Config()
	require.Equal(t, DefaultEpochs, cfg.Epochs)
	require.Equal(t, DefaultBatchSize, cfg.BatchSize)
}

func TestFitAndEvaluateRealModel(t *testing.T) {
	t.Parallel()
	ds := dataset.Synthetic(10, 10, 1)
	for _, p := range precision.All() {
		m, err := nn.Build(p, nn.Config{Seed: 1})
		require.NoError(t, err)

		res, err := New(Config{Epochs: 1, Seed: 1}).Fit(quietContext(), m, &ds.Train)
		require.NoError(t, err, p.String())
		require.False(t, math.IsNaN(res.FinalLoss()))

		ev, err := Evaluate(quietContext(), m, &ds.Test, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, ev.Accuracy, 0.0)
		require.LessOrEqual(t, ev.Accuracy, 1.0)
	}
}
