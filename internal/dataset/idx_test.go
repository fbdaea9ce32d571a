package dataset

import (
	"errors"
	"math"
	"testing"
)

func TestParseImagesErrors(t *testing.T) {
	t.Parallel()

	good := EncodeImages(2, 2, 2, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if _, _, _, _, err := ParseImages(good[:10]); !errors.Is(err, ErrTruncated) {
		t.Errorf("short header: expected ErrTruncated, got %v", err)
	}
	if _, _, _, _, err := ParseImages(good[:len(good)-1]); !errors.Is(err, ErrTruncated) {
		t.Errorf("short body: expected ErrTruncated, got %v", err)
	}
	if _, _, _, _, err := ParseImages(EncodeLabels([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})); !errors.Is(err, ErrBadMagic) {
		t.Errorf("label file as images: expected ErrBadMagic, got %v", err)
	}
	// count*rows*cols wraps a 64-bit int for this header.
	huge := EncodeImages(0x80000000, 0x7fff, 0x7fff, make([]byte, 8))
	if _, _, _, _, err := ParseImages(huge); !errors.Is(err, ErrTruncated) {
		t.Errorf("oversized count: expected ErrTruncated, got %v", err)
	}
	for _, dims := range [][2]int{{0, 28}, {28, 0}, {0x10000, 0x10000}} {
		bad := EncodeImages(1, dims[0], dims[1], make([]byte, 8))
		if _, _, _, _, err := ParseImages(bad); !errors.Is(err, ErrBadShape) {
			t.Errorf("%dx%d: expected ErrBadShape, got %v", dims[0], dims[1], err)
		}
	}

	count, rows, cols, pixels, err := ParseImages(good)
	if err != nil {
		t.Fatalf("ParseImages: %v", err)
	}
	if count != 2 || rows != 2 || cols != 2 || pixels[7] != 8 {
		t.Fatalf("unexpected decode %d %d %d %v", count, rows, cols, pixels)
	}
}

func TestParseLabelsErrors(t *testing.T) {
	t.Parallel()

	good := EncodeLabels([]byte{3, 1, 4})
	if _, err := ParseLabels(good[:9]); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if _, err := ParseLabels(EncodeImages(1, 1, 1, []byte{0})); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestNewPartitionCountMismatch(t *testing.T) {
	t.Parallel()

	_, err := newPartition(EncodeImages(2, 1, 1, []byte{0, 255}), EncodeLabels([]byte{1}))
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestNewPartitionRejectsBadLabel(t *testing.T) {
	t.Parallel()

	_, err := newPartition(EncodeImages(1, 1, 1, []byte{0}), EncodeLabels([]byte{10}))
	if err == nil {
		t.Fatal("expected out-of-range label to be rejected")
	}
}

func TestSynthetic(t *testing.T) {
	t.Parallel()

	a := Synthetic(10, 4, 1)
	b := Synthetic(10, 4, 1)
	if a.Train.Len() != 10 || a.Test.Len() != 4 {
		t.Fatalf("unexpected sizes %d/%d", a.Train.Len(), a.Test.Len())
	}
	if err := a.Train.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for i, v := range a.Train.Pixels {
		if v != b.Train.Pixels[i] {
			t.Fatal("Synthetic must be deterministic for a seed")
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Fatalf("pixel out of range: %v", v)
		}
	}
}

func TestHeadAndGather(t *testing.T) {
	t.Parallel()

	ds := Synthetic(6, 1, 2)
	head := ds.Train.Head(2)
	if head.Len() != 2 || len(head.Pixels) != 2*784 {
		t.Fatalf("unexpected head %d/%d", head.Len(), len(head.Pixels))
	}
	if full := ds.Train.Head(0); full.Len() != 6 {
		t.Fatalf("Head(0) should keep everything, got %d", full.Len())
	}

	pixels := make([]float64, 2*784)
	labels := make([]int, 2)
	ds.Train.Gather([]int{5, 0}, pixels, labels)
	if labels[0] != ds.Train.Labels[5] || pixels[0] != ds.Train.Image(5)[0] {
		t.Fatal("Gather copied the wrong sample")
	}
}
