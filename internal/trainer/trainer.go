// Package trainer fits a model against a training partition and times the
// fit, excluding everything that happens before it starts (model
// construction in particular).
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/samcharles93/fpbench/internal/dataset"
	"github.com/samcharles93/fpbench/internal/logger"
	"github.com/samcharles93/fpbench/internal/metrics"
	"github.com/samcharles93/fpbench/internal/precision"
)

const (
	DefaultEpochs    = 5
	DefaultBatchSize = 32
)

var (
	// ErrDiverged is returned when an epoch's loss is NaN or infinite.
	ErrDiverged = errors.New("training diverged")
	// ErrEmptyPartition is returned for partitions without samples.
	ErrEmptyPartition = errors.New("empty partition")
)

// Model is what the trainer needs from a classifier.
type Model interface {
	Precision() precision.Precision
	InputSize() int
	TrainBatch(pixels []float64, labels []int) (loss float64, correct int, err error)
	Evaluate(pixels []float64, labels []int, batchSize int) (loss, accuracy float64, err error)
}

// Config holds the fit knobs. Zero fields take the defaults.
type Config struct {
	Epochs    int `yaml:"epochs" json:"epochs"`
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Seed drives the per-epoch shuffle. Zero seeds from the clock.
	Seed int64 `yaml:"seed" json:"seed"`
}

// Trainer runs timed fits.
type Trainer struct {
	cfg   Config
	clock func() time.Time
}

// Option customises a Trainer.
type Option func(*Trainer)

// WithClock replaces time.Now as the source of wall-clock readings.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) { t.clock = now }
}

// New returns a Trainer with cfg's zero fields defaulted.
func New(cfg Config, opts ...Option) *Trainer {
	if cfg.Epochs <= 0 {
		cfg.Epochs = DefaultEpochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	t := &Trainer{cfg: cfg, clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config { return t.cfg }

// EpochStats summarises one pass over the training partition.
type EpochStats struct {
	Epoch    int
	Loss     float64
	Accuracy float64
	Elapsed  time.Duration
}

// Result is the outcome of one Fit.
type Result struct {
	Precision precision.Precision
	Elapsed   time.Duration
	Samples   int
	Epochs    []EpochStats
}

// FinalLoss returns the loss of the last epoch.
func (r Result) FinalLoss() float64 {
	if len(r.Epochs) == 0 {
		return math.NaN()
	}
	return r.Epochs[len(r.Epochs)-1].Loss
}

// Throughput returns trained samples per second over the whole fit.
func (r Result) Throughput() float64 {
	return metrics.Throughput(r.Samples*len(r.Epochs), r.Elapsed)
}

// Fit trains m on data for the configured number of epochs with shuffled
// minibatches. The clock is read immediately before the first batch and
// immediately after the last one.
func (t *Trainer) Fit(ctx context.Context, m Model, data *dataset.Partition) (Result, error) {
	p := m.Precision()
	log := logger.FromContext(ctx).With("precision", p.String())
	n := data.Len()
	if n == 0 {
		return Result{}, fmt.Errorf("fit %s: %w", p, ErrEmptyPartition)
	}
	in := data.ImageSize()
	if in != m.InputSize() {
		return Result{}, fmt.Errorf("fit %s: partition images have %d values, model expects %d", p, in, m.InputSize())
	}

	seed := t.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	bs := min(t.cfg.BatchSize, n)
	pixels := make([]float64, bs*in)
	labels := make([]int, bs)
	res := Result{Precision: p, Samples: n, Epochs: make([]EpochStats, 0, t.cfg.Epochs)}

	start := t.clock()
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		epochStart := t.clock()
		order := data.Shuffled(rng)
		var lossSum float64
		correct := 0
		for lo := 0; lo < n; lo += bs {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			hi := min(lo+bs, n)
			k := hi - lo
			data.Gather(order[lo:hi], pixels[:k*in], labels[:k])
			loss, c, err := m.TrainBatch(pixels[:k*in], labels[:k])
			if err != nil {
				return Result{}, fmt.Errorf("fit %s epoch %d: %w", p, epoch, err)
			}
			lossSum += loss * float64(k)
			correct += c
		}

		stats := EpochStats{
			Epoch:    epoch,
			Loss:     lossSum / float64(n),
			Accuracy: float64(correct) / float64(n),
			Elapsed:  t.clock().Sub(epochStart),
		}
		if math.IsNaN(stats.Loss) || math.IsInf(stats.Loss, 0) {
			return Result{}, fmt.Errorf("fit %s epoch %d: %w: loss %v", p, epoch, ErrDiverged, stats.Loss)
		}
		res.Epochs = append(res.Epochs, stats)
		log.Debug("epoch done",
			"epoch", epoch,
			"loss", stats.Loss,
			"accuracy", stats.Accuracy,
			"elapsed", stats.Elapsed,
		)
	}
	res.Elapsed = max(t.clock().Sub(start), 0)
	return res, nil
}

// Evaluation is the held-out loss and accuracy of a model.
type Evaluation struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// Evaluate measures m against data without training it.
func Evaluate(ctx context.Context, m Model, data *dataset.Partition, batchSize int) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	if data.Len() == 0 {
		return Evaluation{}, fmt.Errorf("evaluate %s: %w", m.Precision(), ErrEmptyPartition)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	loss, acc, err := m.Evaluate(data.Pixels, data.Labels, batchSize)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate %s: %w", m.Precision(), err)
	}
	logger.FromContext(ctx).Debug("evaluated", "precision", m.Precision().String(), "loss", loss, "accuracy", acc)
	return Evaluation{Loss: loss, Accuracy: acc}, nil
}
