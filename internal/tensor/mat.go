package tensor

import (
	"math"
	"math/rand"

	"github.com/x448/float16"
)

// Mat is a dense row-major matrix whose elements are stored at a single
// dtype. Exactly one of F64, F32 or F16 is populated, matching DType, and
// holds R*C elements.
//
// Shape mismatches and out-of-range indices panic.
type Mat struct {
	R, C  int
	DType DType

	F64 []float64
	F32 []float32
	F16 []float16.Float16
}

// NewMat allocates a zeroed r x c matrix of the given dtype.
func NewMat(dt DType, r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	m := Mat{R: r, C: c, DType: dt}
	switch dt {
	case F64:
		m.F64 = make([]float64, r*c)
	case F32:
		m.F32 = make([]float32, r*c)
	case F16:
		m.F16 = make([]float16.Float16, r*c)
	default:
		panic(errUnsupportedDType)
	}
	return m
}

// NewMatFrom builds a matrix of dtype dt from float64 values, rounding each
// element to the target width.
func NewMatFrom(dt DType, r, c int, data []float64) Mat {
	if r*c != len(data) {
		panic(errSizeMismatch)
	}
	m := NewMat(dt, r, c)
	Load(&m, data)
	return m
}

// Len returns R*C.
func (m *Mat) Len() int { return m.R * m.C }

// Bytes returns the storage footprint of the element data.
func (m *Mat) Bytes() int { return m.Len() * m.DType.Size() }

// At returns element (i, j) widened to float64.
func (m *Mat) At(i, j int) float64 {
	idx := m.index(i, j)
	switch m.DType {
	case F64:
		return m.F64[idx]
	case F32:
		return float64(m.F32[idx])
	case F16:
		return float64(f16ToF32(m.F16[idx]))
	default:
		panic(errUnsupportedDType)
	}
}

// Set stores v at (i, j), rounding to the matrix dtype.
func (m *Mat) Set(i, j int, v float64) {
	idx := m.index(i, j)
	switch m.DType {
	case F64:
		m.F64[idx] = v
	case F32:
		m.F32[idx] = float32(v)
	case F16:
		m.F16[idx] = f32ToF16(float32(v))
	default:
		panic(errUnsupportedDType)
	}
}

// RowTo widens row i into dst. dst must have length >= C.
func (m *Mat) RowTo(dst []float64, i int) {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	if len(dst) < m.C {
		panic("row buffer too small")
	}
	start := i * m.C
	switch m.DType {
	case F64:
		copy(dst[:m.C], m.F64[start:start+m.C])
	case F32:
		for j, v := range m.F32[start : start+m.C] {
			dst[j] = float64(v)
		}
	case F16:
		for j, h := range m.F16[start : start+m.C] {
			dst[j] = float64(fp16Table[h])
		}
	default:
		panic(errUnsupportedDType)
	}
}

// Slice returns a view over rows [from, to). The view shares storage.
func (m *Mat) Slice(from, to int) Mat {
	if from < 0 || to > m.R || from > to {
		panic("row slice out of range")
	}
	v := Mat{R: to - from, C: m.C, DType: m.DType}
	lo, hi := from*m.C, to*m.C
	switch m.DType {
	case F64:
		v.F64 = m.F64[lo:hi]
	case F32:
		v.F32 = m.F32[lo:hi]
	case F16:
		v.F16 = m.F16[lo:hi]
	}
	return v
}

func (m *Mat) index(i, j int) int {
	if i < 0 || i >= m.R || j < 0 || j >= m.C {
		panic("matrix index out of range")
	}
	return i*m.C + j
}

// Load copies src into m, rounding to m's dtype. len(src) must equal R*C.
func Load(m *Mat, src []float64) {
	if len(src) != m.Len() {
		panic(errSizeMismatch)
	}
	switch m.DType {
	case F64:
		copy(m.F64, src)
	case F32:
		for i, v := range src {
			m.F32[i] = float32(v)
		}
	case F16:
		for i, v := range src {
			m.F16[i] = f32ToF16(float32(v))
		}
	default:
		panic(errUnsupportedDType)
	}
}

// Zero clears every element.
func Zero(m *Mat) {
	clear(m.F64)
	clear(m.F32)
	clear(m.F16)
}

// GlorotUniform fills m with samples from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func GlorotUniform(m *Mat, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range m.Len() {
		v := (rng.Float64()*2 - 1) * limit
		switch m.DType {
		case F64:
			m.F64[i] = v
		case F32:
			m.F32[i] = float32(v)
		case F16:
			m.F16[i] = f32ToF16(float32(v))
		}
	}
}

// Finite reports whether every element is neither NaN nor infinite.
func Finite(m *Mat) bool {
	switch m.DType {
	case F64:
		for _, v := range m.F64 {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	case F32:
		for _, v := range m.F32 {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	case F16:
		for _, h := range m.F16 {
			if h.IsNaN() || h.IsInf(0) {
				return false
			}
		}
	}
	return true
}

var (
	errUnsupportedDType = fmtError("unsupported dtype for matrix")
	errSizeMismatch     = fmtError("data length mismatch")
	errShapeMismatch    = fmtError("matrix shape mismatch")
	errDTypeMismatch    = fmtError("matrix dtype mismatch")
)

type fmtError string

func (e fmtError) Error() string { return string(e) }
