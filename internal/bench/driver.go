// Package bench drives the precision benchmark: a discarded warmup fit, then
// a fixed number of timed build+fit cycles per precision, then a held-out
// evaluation of each precision's last model.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/fpbench/internal/dataset"
	"github.com/samcharles93/fpbench/internal/logger"
	"github.com/samcharles93/fpbench/internal/metrics"
	"github.com/samcharles93/fpbench/internal/nn"
	"github.com/samcharles93/fpbench/internal/precision"
	"github.com/samcharles93/fpbench/internal/trainer"
	"github.com/samcharles93/fpbench/internal/version"
)

// DefaultRuns is the number of timed fits per precision.
const DefaultRuns = 5

// Phase is a state of the benchmark. Phases advance strictly in order.
type Phase uint8

const (
	PhaseWarmup Phase = iota + 1
	PhaseTrainingDouble
	PhaseTrainingSingle
	PhaseTrainingHalf
	PhaseReporting
)

func trainingPhase(p precision.Precision) Phase {
	switch p {
	case precision.Double:
		return PhaseTrainingDouble
	case precision.Single:
		return PhaseTrainingSingle
	default:
		return PhaseTrainingHalf
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseTrainingDouble:
		return "training-double"
	case PhaseTrainingSingle:
		return "training-single"
	case PhaseTrainingHalf:
		return "training-half"
	case PhaseReporting:
		return "reporting"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// BuildFunc constructs a fresh, untrained model at the given precision.
type BuildFunc func(p precision.Precision, cfg nn.Config) (trainer.Model, error)

// BuildMLP is the default BuildFunc.
func BuildMLP(p precision.Precision, cfg nn.Config) (trainer.Model, error) {
	return nn.Build(p, cfg)
}

// Config selects what the driver measures. Zero fields take defaults.
type Config struct {
	Runs       int
	Precisions []precision.Precision
	SkipWarmup bool
	Model      nn.Config
	EvalBatch  int
	// EvaluateEveryRun evaluates every run's model, not just the last, and
	// reports the mean accuracy next to the final-model accuracy.
	EvaluateEveryRun bool
}

// Hooks observe the driver's progress.
type Hooks struct {
	OnPhase func(Phase)
	OnRun   func(precision.Precision, RunResult)
}

// Driver runs the benchmark. It is single-threaded: one fit at a time.
type Driver struct {
	cfg     Config
	build   BuildFunc
	trainer *trainer.Trainer
	hooks   Hooks
	timings map[precision.Precision]*metrics.Accumulator
}

// Option customises a Driver.
type Option func(*Driver)

// WithBuilder replaces BuildMLP.
func WithBuilder(b BuildFunc) Option { return func(d *Driver) { d.build = b } }

// WithTrainer replaces the default trainer.
func WithTrainer(t *trainer.Trainer) Option { return func(d *Driver) { d.trainer = t } }

// WithHooks installs progress callbacks.
func WithHooks(h Hooks) Option { return func(d *Driver) { d.hooks = h } }

// ErrConfig is returned for configurations the driver cannot run.
var ErrConfig = errors.New("invalid benchmark config")

// New validates cfg and returns a Driver.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if cfg.Runs == 0 {
		cfg.Runs = DefaultRuns
	}
	if cfg.Runs < 0 {
		return nil, fmt.Errorf("%w: runs must be > 0 (got %d)", ErrConfig, cfg.Runs)
	}
	if len(cfg.Precisions) == 0 {
		cfg.Precisions = precision.All()
	}
	seen := map[precision.Precision]bool{}
	for _, p := range cfg.Precisions {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %w: %v", ErrConfig, precision.ErrInvalid, p)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrConfig, p)
		}
		seen[p] = true
	}

	d := &Driver{
		cfg:     cfg,
		build:   BuildMLP,
		trainer: trainer.New(trainer.Config{}),
		timings: make(map[precision.Precision]*metrics.Accumulator, len(cfg.Precisions)),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, p := range cfg.Precisions {
		d.timings[p] = &metrics.Accumulator{}
	}
	return d, nil
}

// Timings returns copies of the per-precision accumulators. Mutating them
// does not affect the driver.
func (d *Driver) Timings() map[precision.Precision]*metrics.Accumulator {
	out := make(map[precision.Precision]*metrics.Accumulator, len(d.timings))
	for p, acc := range d.timings {
		cp := &metrics.Accumulator{}
		for _, s := range acc.Samples() {
			cp.Record(s)
		}
		out[p] = cp
	}
	return out
}

// Warmup builds and fits one single-precision model and discards it, so
// one-time initialisation costs stay out of the timed runs. It never touches
// the timing accumulators.
func (d *Driver) Warmup(ctx context.Context, ds *dataset.Dataset) error {
	d.enter(ctx, PhaseWarmup)
	m, err := d.build(precision.Single, d.modelConfig(0))
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	res, err := d.trainer.Fit(ctx, m, &ds.Train)
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	logger.FromContext(ctx).Info("warmup done", "elapsed", res.Elapsed.Round(time.Millisecond))
	return nil
}

// Run executes warmup (unless skipped), the timed runs for every precision
// and the final evaluation. Any error aborts the benchmark; no partial
// report is returned.
func (d *Driver) Run(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Version:   version.Resolve(),
		Config: ReportConfig{
			Runs:         d.cfg.Runs,
			Epochs:       d.trainer.Config().Epochs,
			BatchSize:    d.trainer.Config().BatchSize,
			Warmup:       !d.cfg.SkipWarmup,
			TrainSamples: ds.Train.Len(),
			TestSamples:  ds.Test.Len(),
		},
	}
	log = log.With("run_id", report.RunID)
	ctx = logger.WithContext(ctx, log)

	if !d.cfg.SkipWarmup {
		if err := d.Warmup(ctx, ds); err != nil {
			return nil, err
		}
	}

	finals := make(map[precision.Precision]trainer.Model, len(d.cfg.Precisions))
	results := make(map[precision.Precision]*PrecisionResult, len(d.cfg.Precisions))
	for _, p := range d.cfg.Precisions {
		d.enter(ctx, trainingPhase(p))
		m, res, err := d.runPrecision(ctx, p, ds)
		if err != nil {
			return nil, err
		}
		finals[p] = m
		results[p] = res
	}

	d.enter(ctx, PhaseReporting)
	for _, p := range d.cfg.Precisions {
		res := results[p]
		ev, err := trainer.Evaluate(ctx, finals[p], &ds.Test, d.cfg.EvalBatch)
		if err != nil {
			return nil, err
		}
		acc := d.timings[p]
		res.Accuracy = ev.Accuracy
		res.Loss = ev.Loss
		res.AverageSeconds = acc.MeanSeconds()
		res.MinSeconds = acc.Min().Seconds()
		res.MaxSeconds = acc.Max().Seconds()
		res.Throughput = metrics.Throughput(ds.Train.Len()*report.Config.Epochs*acc.Count(), acc.Total())
		log.Info("precision result",
			"precision", p.String(),
			"avg_seconds", res.AverageSeconds,
			"accuracy", res.Accuracy,
		)
		report.Results = append(report.Results, *res)
	}
	report.Host = DetectHost()
	report.Elapsed = time.Since(report.StartedAt)
	return report, nil
}

// runPrecision performs the timed build+fit cycles for p and returns the last
// model. Only the fit window is recorded.
func (d *Driver) runPrecision(ctx context.Context, p precision.Precision, ds *dataset.Dataset) (trainer.Model, *PrecisionResult, error) {
	log := logger.FromContext(ctx).With("precision", p.String())
	acc := d.timings[p]
	acc.Reset()

	res := &PrecisionResult{Precision: p, Bits: p.Bits()}
	var last trainer.Model
	var accSum float64
	for run := 1; run <= d.cfg.Runs; run++ {
		m, err := d.build(p, d.modelConfig(run))
		if err != nil {
			return nil, nil, fmt.Errorf("build %s run %d: %w", p, run, err)
		}
		fit, err := d.trainer.Fit(ctx, m, &ds.Train)
		if err != nil {
			return nil, nil, fmt.Errorf("run %d: %w", run, err)
		}
		acc.Record(fit.Elapsed)

		rr := RunResult{Run: run, Elapsed: fit.Elapsed, Seconds: fit.Elapsed.Seconds(), TrainLoss: fit.FinalLoss()}
		if d.cfg.EvaluateEveryRun {
			ev, err := trainer.Evaluate(ctx, m, &ds.Test, d.cfg.EvalBatch)
			if err != nil {
				return nil, nil, err
			}
			rr.Accuracy = &ev.Accuracy
			accSum += ev.Accuracy
		}
		if pb, ok := m.(interface{ ParamBytes() int }); ok {
			res.ParamBytes = pb.ParamBytes()
		}
		res.Runs = append(res.Runs, rr)
		if d.hooks.OnRun != nil {
			d.hooks.OnRun(p, rr)
		}
		log.Info("run done",
			"run", run,
			"elapsed", fit.Elapsed.Round(time.Millisecond),
			"loss", rr.TrainLoss,
			"samples_per_sec", int(fit.Throughput()),
		)
		last = m
	}
	if d.cfg.EvaluateEveryRun {
		mean := accSum / float64(d.cfg.Runs)
		res.MeanAccuracy = &mean
	}
	return last, res, nil
}

// modelConfig derives a distinct deterministic seed per run when a base seed
// is set; zero keeps clock seeding.
func (d *Driver) modelConfig(run int) nn.Config {
	cfg := d.cfg.Model
	if cfg.Seed != 0 {
		cfg.Seed += int64(run)
	}
	return cfg
}

func (d *Driver) enter(ctx context.Context, p Phase) {
	logger.FromContext(ctx).Debug("phase", "phase", p.String())
	if d.hooks.OnPhase != nil {
		d.hooks.OnPhase(p)
	}
}
