package nn

import (
	"math"

	"github.com/samcharles93/fpbench/internal/tensor"
)

// AdamConfig holds the optimizer hyper-parameters. Zero fields take the
// defaults of DefaultAdam.
type AdamConfig struct {
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	Beta1        float64 `yaml:"beta1" json:"beta1"`
	Beta2        float64 `yaml:"beta2" json:"beta2"`
	Epsilon      float64 `yaml:"epsilon" json:"epsilon"`
}

// DefaultAdam returns lr 1e-3, beta1 0.9, beta2 0.999, eps 1e-7.
func DefaultAdam() AdamConfig {
	return AdamConfig{LearningRate: 1e-3, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

func (c AdamConfig) withDefaults() AdamConfig {
	def := DefaultAdam()
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.Beta1 <= 0 {
		c.Beta1 = def.Beta1
	}
	if c.Beta2 <= 0 {
		c.Beta2 = def.Beta2
	}
	if c.Epsilon <= 0 {
		c.Epsilon = def.Epsilon
	}
	return c
}

// adam keeps first and second moment slots per parameter. Slots are float64
// for F64 parameters and float32 otherwise; F16 parameters are widened for
// the update and rounded back afterwards.
type adam struct {
	cfg   AdamConfig
	step  int
	slots []*adamSlot
}

type adamSlot struct {
	param, grad *tensor.Mat

	m64, v64 []float64
	m32, v32 []float32

	pWide, gWide []float32
}

func newAdam(cfg AdamConfig, layers []*Dense) *adam {
	a := &adam{cfg: cfg.withDefaults()}
	for _, l := range layers {
		a.track(&l.W, &l.dW)
		a.track(&l.B, &l.dB)
	}
	return a
}

func (a *adam) track(param, grad *tensor.Mat) {
	s := &adamSlot{param: param, grad: grad}
	n := param.Len()
	switch param.DType {
	case tensor.F64:
		s.m64, s.v64 = make([]float64, n), make([]float64, n)
	case tensor.F16:
		s.pWide, s.gWide = make([]float32, n), make([]float32, n)
		fallthrough
	default:
		s.m32, s.v32 = make([]float32, n), make([]float32, n)
	}
	a.slots = append(a.slots, s)
}

// apply performs one bias-corrected Adam update on every tracked parameter.
func (a *adam) apply() {
	a.step++
	t := float64(a.step)
	lr := a.cfg.LearningRate * math.Sqrt(1-math.Pow(a.cfg.Beta2, t)) / (1 - math.Pow(a.cfg.Beta1, t))

	for _, s := range a.slots {
		switch s.param.DType {
		case tensor.F64:
			adamUpdate(s.param.F64, s.grad.F64, s.m64, s.v64, lr, a.cfg.Beta1, a.cfg.Beta2, a.cfg.Epsilon)
		case tensor.F32:
			adamUpdate(s.param.F32, s.grad.F32, s.m32, s.v32,
				float32(lr), float32(a.cfg.Beta1), float32(a.cfg.Beta2), float32(a.cfg.Epsilon))
		case tensor.F16:
			tensor.WidenTo(s.pWide, s.param)
			tensor.WidenTo(s.gWide, s.grad)
			adamUpdate(s.pWide, s.gWide, s.m32, s.v32,
				float32(lr), float32(a.cfg.Beta1), float32(a.cfg.Beta2), float32(a.cfg.Epsilon))
			tensor.NarrowFrom(s.param, s.pWide)
		}
	}
}

func adamUpdate[T float32 | float64](p, g, m, v []T, lr, b1, b2, eps T) {
	for i, gi := range g {
		m[i] = b1*m[i] + (1-b1)*gi
		v[i] = b2*v[i] + (1-b2)*gi*gi
		p[i] -= lr * m[i] / (T(math.Sqrt(float64(v[i]))) + eps)
	}
}
