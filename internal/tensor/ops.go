package tensor

import (
	"math"
)

// AddRowVector adds the 1 x C vector v to every row of m.
func AddRowVector(m, v *Mat) {
	if v.R != 1 || v.C != m.C {
		panic(errShapeMismatch)
	}
	if v.DType != m.DType {
		panic(errDTypeMismatch)
	}
	switch m.DType {
	case F64:
		addRowVector(m.F64, v.F64, m.C)
	case F32:
		addRowVector(m.F32, v.F32, m.C)
	case F16:
		bias := widened(v)
		defer putScratch(bias)
		for i := 0; i < m.R; i++ {
			row := m.F16[i*m.C : (i+1)*m.C]
			for j, h := range row {
				row[j] = f32ToF16(fp16Table[h] + (*bias)[j])
			}
		}
	default:
		panic(errUnsupportedDType)
	}
}

func addRowVector[T float32 | float64](data, v []T, cols int) {
	for start := 0; start < len(data); start += cols {
		row := data[start : start+cols]
		for j := range row {
			row[j] += v[j]
		}
	}
}

// ReLU applies max(0, x) in place.
func ReLU(m *Mat) {
	switch m.DType {
	case F64:
		relu(m.F64)
	case F32:
		relu(m.F32)
	case F16:
		for i, h := range m.F16 {
			// Sign bit set means negative or -0; NaN payloads pass through.
			if h&0x8000 != 0 && !h.IsNaN() {
				m.F16[i] = 0
			}
		}
	default:
		panic(errUnsupportedDType)
	}
}

func relu[T float32 | float64](data []T) {
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
}

// ReLUBackward zeroes grad wherever the forward activation act was not
// positive.
func ReLUBackward(grad, act *Mat) {
	if grad.R != act.R || grad.C != act.C {
		panic(errShapeMismatch)
	}
	switch grad.DType {
	case F64:
		reluBackward(grad.F64, act.F64)
	case F32:
		reluBackward(grad.F32, act.F32)
	case F16:
		for i, h := range act.F16 {
			if fp16Table[h] <= 0 {
				grad.F16[i] = 0
			}
		}
	default:
		panic(errUnsupportedDType)
	}
}

func reluBackward[T float32 | float64](grad, act []T) {
	for i, a := range act {
		if a <= 0 {
			grad[i] = 0
		}
	}
}

// SumRows writes the column sums of src into the 1 x C matrix dst.
func SumRows(dst, src *Mat) {
	if dst.R != 1 || dst.C != src.C {
		panic(errShapeMismatch)
	}
	switch src.DType {
	case F64:
		sumRows(dst.F64, src.F64, src.C)
	case F32:
		sumRows(dst.F32, src.F32, src.C)
	case F16:
		acc := getScratch(src.C)
		defer putScratch(acc)
		clear(*acc)
		for start := 0; start < len(src.F16); start += src.C {
			for j, h := range src.F16[start : start+src.C] {
				(*acc)[j] += fp16Table[h]
			}
		}
		narrowF16(dst.F16, *acc)
	default:
		panic(errUnsupportedDType)
	}
}

func sumRows[T float32 | float64](dst, src []T, cols int) {
	clear(dst)
	for start := 0; start < len(src); start += cols {
		for j, v := range src[start : start+cols] {
			dst[j] += v
		}
	}
}

// ArgmaxRows returns the column index of the largest element in every row.
// NaN elements never win; a row of NaNs yields 0.
func ArgmaxRows(m *Mat) []int {
	out := make([]int, m.R)
	row := make([]float64, m.C)
	for i := range m.R {
		m.RowTo(row, i)
		best, bestV := 0, math.Inf(-1)
		for j, v := range row {
			if v > bestV {
				best, bestV = j, v
			}
		}
		out[i] = best
	}
	return out
}

// SoftmaxCrossEntropy computes the mean sparse categorical cross-entropy of
// logits against labels, treating logits as unnormalised scores. The
// gradient with respect to the logits, (softmax - onehot) / batch, is
// written to grad at grad's dtype. Reductions run in float64 via the
// log-sum-exp form.
func SoftmaxCrossEntropy(grad, logits *Mat, labels []int) float64 {
	if len(labels) != logits.R {
		panic(errSizeMismatch)
	}
	if grad != nil && (grad.R != logits.R || grad.C != logits.C) {
		panic(errShapeMismatch)
	}
	if logits.R == 0 {
		return 0
	}
	row := make([]float64, logits.C)
	inv := 1 / float64(logits.R)
	var total float64
	for i := range logits.R {
		logits.RowTo(row, i)
		maxv := math.Inf(-1)
		for _, v := range row {
			maxv = math.Max(maxv, v)
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(v - maxv)
		}
		logZ := maxv + math.Log(sum)
		y := labels[i]
		total += logZ - row[y]
		if grad == nil {
			continue
		}
		for j, v := range row {
			g := math.Exp(v - logZ)
			if j == y {
				g -= 1
			}
			grad.Set(i, j, g*inv)
		}
	}
	return total * inv
}

func widened(m *Mat) *[]float32 {
	buf := getScratch(m.Len())
	widenF16(*buf, m.F16)
	return buf
}
