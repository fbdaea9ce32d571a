package tensor

import (
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// Gemm computes c = alpha * op(a) * op(b) + beta * c where op transposes its
// argument when the matching flag is set. All three matrices must share a
// dtype.
//
// F64 and F32 run through gonum's BLAS. F16 has no BLAS kernel: operands are
// widened to float32, multiplied with blas32, and the result is rounded back
// to binary16, so storage stays 16 bit while accumulation is 32 bit.
func Gemm(transA, transB bool, alpha float64, a, b *Mat, beta float64, c *Mat) {
	m, k := a.R, a.C
	if transA {
		m, k = k, m
	}
	kb, n := b.R, b.C
	if transB {
		kb, n = n, kb
	}
	if k != kb || c.R != m || c.C != n {
		panic(errShapeMismatch)
	}
	if a.DType != b.DType || a.DType != c.DType {
		panic(errDTypeMismatch)
	}
	tA, tB := blasTrans(transA), blasTrans(transB)

	switch c.DType {
	case F64:
		blas64.Gemm(tA, tB, alpha, general64(a), general64(b), beta, general64(c))
	case F32:
		blas32.Gemm(tA, tB, float32(alpha), general32(a.R, a.C, a.F32), general32(b.R, b.C, b.F32),
			float32(beta), general32(c.R, c.C, c.F32))
	case F16:
		gemmF16(tA, tB, float32(alpha), a, b, float32(beta), c)
	default:
		panic(errUnsupportedDType)
	}
}

func gemmF16(tA, tB blas.Transpose, alpha float32, a, b *Mat, beta float32, c *Mat) {
	aw := getScratch(a.Len())
	bw := getScratch(b.Len())
	cw := getScratch(c.Len())
	defer putScratch(aw)
	defer putScratch(bw)
	defer putScratch(cw)

	widenF16(*aw, a.F16)
	widenF16(*bw, b.F16)
	if beta != 0 {
		widenF16(*cw, c.F16)
	}
	blas32.Gemm(tA, tB, alpha, general32(a.R, a.C, *aw), general32(b.R, b.C, *bw),
		beta, general32(c.R, c.C, *cw))
	narrowF16(c.F16, *cw)
}

func blasTrans(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func general64(m *Mat) blas64.General {
	return blas64.General{Rows: m.R, Cols: m.C, Stride: max(m.C, 1), Data: m.F64}
}

func general32(r, c int, data []float32) blas32.General {
	return blas32.General{Rows: r, Cols: c, Stride: max(c, 1), Data: data}
}

// scratchPool recycles float32 buffers used to widen f16 operands.
var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]float32, 0)
		return &buf
	},
}

func getScratch(n int) *[]float32 {
	bp := scratchPool.Get().(*[]float32)
	if cap(*bp) < n {
		*bp = make([]float32, n)
	}
	*bp = (*bp)[:n]
	return bp
}

func putScratch(bp *[]float32) {
	scratchPool.Put(bp)
}
