package nn

import (
	"math/rand"

	"github.com/samcharles93/fpbench/internal/tensor"
)

// Activation selects the element-wise function applied after a Dense layer.
type Activation uint8

const (
	Linear Activation = iota
	ReLU
)

func (a Activation) String() string {
	if a == ReLU {
		return "relu"
	}
	return "linear"
}

// Dense is a fully-connected layer y = act(x·W + b) with W stored as
// [In x Out]. Parameters, gradients and activations share one dtype.
type Dense struct {
	Name       string
	In, Out    int
	Activation Activation

	W, B   tensor.Mat
	dW, dB tensor.Mat

	input *tensor.Mat
	out   tensor.Mat
	dIn   tensor.Mat
}

func newDense(name string, dt tensor.DType, in, out int, act Activation, rng *rand.Rand) *Dense {
	d := &Dense{
		Name:       name,
		In:         in,
		Out:        out,
		Activation: act,
		W:          tensor.NewMat(dt, in, out),
		B:          tensor.NewMat(dt, 1, out),
		dW:         tensor.NewMat(dt, in, out),
		dB:         tensor.NewMat(dt, 1, out),
	}
	tensor.GlorotUniform(&d.W, in, out, rng)
	return d
}

// forward keeps a reference to x for the backward pass. The returned matrix
// is owned by the layer and overwritten by the next call.
func (d *Dense) forward(x *tensor.Mat) *tensor.Mat {
	ensure(&d.out, d.W.DType, x.R, d.Out)
	tensor.Gemm(false, false, 1, x, &d.W, 0, &d.out)
	tensor.AddRowVector(&d.out, &d.B)
	if d.Activation == ReLU {
		tensor.ReLU(&d.out)
	}
	d.input = x
	return &d.out
}

// backward consumes the gradient of the loss w.r.t. the layer output (it is
// modified in place), fills dW and dB, and returns the gradient w.r.t. the
// input when needInput is set.
func (d *Dense) backward(gradOut *tensor.Mat, needInput bool) *tensor.Mat {
	if d.Activation == ReLU {
		tensor.ReLUBackward(gradOut, &d.out)
	}
	tensor.Gemm(true, false, 1, d.input, gradOut, 0, &d.dW)
	tensor.SumRows(&d.dB, gradOut)
	if !needInput {
		return nil
	}
	ensure(&d.dIn, d.W.DType, gradOut.R, d.In)
	tensor.Gemm(false, true, 1, gradOut, &d.W, 0, &d.dIn)
	return &d.dIn
}

// ensure reallocates m when its shape differs from r x c.
func ensure(m *tensor.Mat, dt tensor.DType, r, c int) {
	if m.R == r && m.C == c && m.DType == dt {
		return
	}
	*m = tensor.NewMat(dt, r, c)
}
