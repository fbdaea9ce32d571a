package tensor

import (
	"math"
	"testing"

	"github.com/samcharles93/fpbench/internal/precision"
)

func TestFromPrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    precision.Precision
		want DType
		bits int
	}{
		{precision.Double, F64, 64},
		{precision.Single, F32, 32},
		{precision.Half, F16, 16},
	}
	for _, tc := range tests {
		dt, err := FromPrecision(tc.p)
		if err != nil {
			t.Fatalf("FromPrecision(%v): %v", tc.p, err)
		}
		if dt != tc.want || dt.Bits() != tc.bits {
			t.Errorf("FromPrecision(%v): expected %v/%d, got %v/%d", tc.p, tc.want, tc.bits, dt, dt.Bits())
		}
		if dt.Precision() != tc.p {
			t.Errorf("%v.Precision(): expected %v, got %v", dt, tc.p, dt.Precision())
		}
	}

	if _, err := FromPrecision(0); err == nil {
		t.Fatal("expected error for zero precision")
	}
}

func TestNewMatAllocatesOnlyItsDType(t *testing.T) {
	t.Parallel()

	m := NewMat(F16, 3, 4)
	if len(m.F16) != 12 || m.F32 != nil || m.F64 != nil {
		t.Fatalf("unexpected backing slices: f64=%d f32=%d f16=%d", len(m.F64), len(m.F32), len(m.F16))
	}
	if m.Bytes() != 24 {
		t.Fatalf("expected 24 bytes, got %d", m.Bytes())
	}
}

func TestHalfRounding(t *testing.T) {
	t.Parallel()

	m := NewMat(F16, 1, 3)
	m.Set(0, 0, 1.0/3.0)
	m.Set(0, 1, 70000)
	m.Set(0, 2, 2048+1)

	if got := m.At(0, 0); math.Abs(got-1.0/3.0) > 1e-3 || got == 1.0/3.0 {
		t.Errorf("expected 1/3 rounded to binary16, got %v", got)
	}
	if got := m.At(0, 1); !math.IsInf(got, 1) {
		t.Errorf("expected overflow to +Inf, got %v", got)
	}
	if got := m.At(0, 2); got != 2048 {
		t.Errorf("expected 2049 to round to even 2048, got %v", got)
	}
	if Finite(&m) {
		t.Error("expected Finite to report the overflow")
	}
}

func TestSliceSharesStorage(t *testing.T) {
	t.Parallel()

	m := NewMatFrom(F32, 3, 2, []float64{1, 2, 3, 4, 5, 6})
	v := m.Slice(1, 3)
	if v.R != 2 || v.At(0, 1) != 4 {
		t.Fatalf("unexpected view: R=%d first=%v", v.R, v.At(0, 1))
	}
	v.Set(1, 0, 9)
	if m.At(2, 0) != 9 {
		t.Fatalf("expected write through view, got %v", m.At(2, 0))
	}
}

func TestLoadPanicsOnLengthMismatch(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	m := NewMat(F64, 2, 2)
	Load(&m, []float64{1, 2, 3})
}
