package tensor

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/samcharles93/fpbench/internal/precision"
)

// DType describes the element encoding of a Mat.
type DType uint8

const (
	F64 DType = iota + 1
	F32
	F16
)

// FromPrecision maps a benchmark precision onto its storage dtype.
func FromPrecision(p precision.Precision) (DType, error) {
	switch p {
	case precision.Double:
		return F64, nil
	case precision.Single:
		return F32, nil
	case precision.Half:
		return F16, nil
	default:
		return 0, fmt.Errorf("tensor: %w: %v", precision.ErrInvalid, p)
	}
}

// Precision is the inverse of FromPrecision.
func (d DType) Precision() precision.Precision {
	switch d {
	case F64:
		return precision.Double
	case F32:
		return precision.Single
	case F16:
		return precision.Half
	default:
		return 0
	}
}

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case F64:
		return 8
	case F32:
		return 4
	case F16:
		return 2
	default:
		return 0
	}
}

// Bits returns the element width in bits.
func (d DType) Bits() int { return d.Size() * 8 }

func (d DType) String() string {
	switch d {
	case F64:
		return "f64"
	case F32:
		return "f32"
	case F16:
		return "f16"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// fp16Table maps every binary16 bit pattern to float32.
var fp16Table = func() [1 << 16]float32 {
	var tbl [1 << 16]float32
	for i := range tbl {
		tbl[i] = float16.Frombits(uint16(i)).Float32()
	}
	return tbl
}()

func f16ToF32(h float16.Float16) float32 {
	return fp16Table[h]
}

// f32ToF16 rounds to nearest-even, overflowing to ±Inf.
func f32ToF16(f float32) float16.Float16 {
	return float16.Fromfloat32(f)
}

func widenF16(dst []float32, src []float16.Float16) {
	dst = dst[:len(src)]
	for i, h := range src {
		dst[i] = fp16Table[h]
	}
}

func narrowF16(dst []float16.Float16, src []float32) {
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i] = float16.Fromfloat32(v)
	}
}

// RoundHalf rounds v through binary16 and back.
func RoundHalf(v float64) float64 {
	return float64(f16ToF32(f32ToF16(float32(v))))
}

// WidenTo decodes an F16 matrix into dst, which must hold R*C elements.
func WidenTo(dst []float32, m *Mat) {
	if m.DType != F16 {
		panic(errUnsupportedDType)
	}
	if len(dst) < m.Len() {
		panic(errSizeMismatch)
	}
	widenF16(dst, m.F16)
}

// NarrowFrom rounds src into an F16 matrix.
func NarrowFrom(m *Mat, src []float32) {
	if m.DType != F16 {
		panic(errUnsupportedDType)
	}
	if len(src) != m.Len() {
		panic(errSizeMismatch)
	}
	narrowF16(m.F16, src)
}
