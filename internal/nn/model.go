// Package nn builds and trains the benchmark classifier: a flattened 28x28
// input, one 128-unit ReLU layer and a 10-unit logits layer, every tensor held
// at a single precision.
package nn

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/samcharles93/fpbench/internal/precision"
	"github.com/samcharles93/fpbench/internal/tensor"
)

// Config describes the architecture and optimizer. Zero fields take the
// values of DefaultConfig.
type Config struct {
	InputRows int        `yaml:"input_rows" json:"input_rows"`
	InputCols int        `yaml:"input_cols" json:"input_cols"`
	Hidden    int        `yaml:"hidden" json:"hidden"`
	Classes   int        `yaml:"classes" json:"classes"`
	Optimizer AdamConfig `yaml:"optimizer" json:"optimizer"`

	// Seed drives weight initialisation. Zero seeds from the clock so every
	// build starts from a fresh initialisation.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the 28x28 -> 128 relu -> 10 architecture.
func DefaultConfig() Config {
	return Config{
		InputRows: 28,
		InputCols: 28,
		Hidden:    128,
		Classes:   10,
		Optimizer: DefaultAdam(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.InputRows <= 0 {
		c.InputRows = def.InputRows
	}
	if c.InputCols <= 0 {
		c.InputCols = def.InputCols
	}
	if c.Hidden <= 0 {
		c.Hidden = def.Hidden
	}
	if c.Classes <= 0 {
		c.Classes = def.Classes
	}
	c.Optimizer = c.Optimizer.withDefaults()
	return c
}

// ErrShape is returned when a batch does not match the model input.
var ErrShape = errors.New("input shape mismatch")

// Model is a compiled feed-forward classifier. It is not safe for concurrent
// use.
type Model struct {
	prec   precision.Precision
	dtype  tensor.DType
	cfg    Config
	layers []*Dense
	opt    *adam

	x    tensor.Mat
	grad tensor.Mat
}

// ParamInfo describes one parameter tensor.
type ParamInfo struct {
	Name  string
	Rows  int
	Cols  int
	DType tensor.DType
}

// Build constructs and compiles a freshly initialised model whose parameters
// are all materialised at precision p.
func Build(p precision.Precision, cfg Config) (*Model, error) {
	dt, err := tensor.FromPrecision(p)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	cfg = cfg.withDefaults()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	in := cfg.InputRows * cfg.InputCols
	m := &Model{
		prec:  p,
		dtype: dt,
		cfg:   cfg,
		layers: []*Dense{
			newDense("dense", dt, in, cfg.Hidden, ReLU, rng),
			newDense("dense_1", dt, cfg.Hidden, cfg.Classes, Linear, rng),
		},
	}
	m.opt = newAdam(cfg.Optimizer, m.layers)
	return m, nil
}

// Precision returns the precision the model was built at.
func (m *Model) Precision() precision.Precision { return m.prec }

// DType returns the storage dtype shared by every parameter.
func (m *Model) DType() tensor.DType { return m.dtype }

// InputSize is the flattened input width.
func (m *Model) InputSize() int { return m.cfg.InputRows * m.cfg.InputCols }

// Classes is the number of output logits.
func (m *Model) Classes() int { return m.cfg.Classes }

// Params lists the parameter tensors in layer order.
func (m *Model) Params() []ParamInfo {
	out := make([]ParamInfo, 0, 2*len(m.layers))
	for _, l := range m.layers {
		out = append(out,
			ParamInfo{Name: l.Name + "/kernel", Rows: l.W.R, Cols: l.W.C, DType: l.W.DType},
			ParamInfo{Name: l.Name + "/bias", Rows: l.B.R, Cols: l.B.C, DType: l.B.DType},
		)
	}
	return out
}

// ParamCount returns the total number of scalar parameters.
func (m *Model) ParamCount() int {
	n := 0
	for _, p := range m.Params() {
		n += p.Rows * p.Cols
	}
	return n
}

// ParamBytes returns the parameter storage footprint.
func (m *Model) ParamBytes() int {
	return m.ParamCount() * m.dtype.Size()
}

// TrainBatch runs forward, backward and one optimizer step on a batch of
// flattened images. It returns the mean batch loss and the number of
// correctly classified samples, both measured before the update.
func (m *Model) TrainBatch(pixels []float64, labels []int) (float64, int, error) {
	logits, err := m.forward(pixels, labels)
	if err != nil {
		return 0, 0, err
	}
	correct := countCorrect(logits, labels)

	ensure(&m.grad, m.dtype, logits.R, logits.C)
	loss := tensor.SoftmaxCrossEntropy(&m.grad, logits, labels)

	g := &m.grad
	for i := len(m.layers) - 1; i >= 0; i-- {
		g = m.layers[i].backward(g, i > 0)
	}
	m.opt.apply()
	return loss, correct, nil
}

// Evaluate computes mean loss and accuracy over the given samples in batches
// of batchSize without updating parameters.
func (m *Model) Evaluate(pixels []float64, labels []int, batchSize int) (loss, accuracy float64, err error) {
	n := len(labels)
	if n == 0 {
		return 0, 0, fmt.Errorf("evaluate: %w: no samples", ErrShape)
	}
	if batchSize <= 0 {
		batchSize = n
	}
	in := m.InputSize()
	var lossSum float64
	correct := 0
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		batchLabels := labels[start:end]
		logits, err := m.forward(pixels[start*in:end*in], batchLabels)
		if err != nil {
			return 0, 0, err
		}
		lossSum += tensor.SoftmaxCrossEntropy(nil, logits, batchLabels) * float64(end-start)
		correct += countCorrect(logits, batchLabels)
	}
	return lossSum / float64(n), float64(correct) / float64(n), nil
}

// Predict returns the arg-max class for each flattened image.
func (m *Model) Predict(pixels []float64) ([]int, error) {
	in := m.InputSize()
	if len(pixels)%in != 0 {
		return nil, fmt.Errorf("predict: %w: %d values is not a multiple of %d", ErrShape, len(pixels), in)
	}
	logits, err := m.forward(pixels, make([]int, len(pixels)/in))
	if err != nil {
		return nil, err
	}
	return tensor.ArgmaxRows(logits), nil
}

// forward casts the batch into the model dtype and runs every layer.
func (m *Model) forward(pixels []float64, labels []int) (*tensor.Mat, error) {
	in := m.InputSize()
	n := len(labels)
	if len(pixels) != n*in {
		return nil, fmt.Errorf("%w: %d values for %d samples of %d", ErrShape, len(pixels), n, in)
	}
	for _, y := range labels {
		if y < 0 || y >= m.cfg.Classes {
			return nil, fmt.Errorf("%w: label %d outside [0,%d)", ErrShape, y, m.cfg.Classes)
		}
	}
	ensure(&m.x, m.dtype, n, in)
	tensor.Load(&m.x, pixels)

	out := &m.x
	for _, l := range m.layers {
		out = l.forward(out)
	}
	return out, nil
}

func countCorrect(logits *tensor.Mat, labels []int) int {
	correct := 0
	for i, p := range tensor.ArgmaxRows(logits) {
		if p == labels[i] {
			correct++
		}
	}
	return correct
}
