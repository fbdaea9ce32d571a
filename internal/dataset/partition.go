// Package dataset loads labelled 28x28 image data split into train and test
// partitions, with pixel intensities scaled into [0,1].
package dataset

import (
	"errors"
	"fmt"
	"math/rand"
)

// NumClasses is the number of Fashion-MNIST categories.
const NumClasses = 10

// ErrMismatch is returned when image and label counts disagree.
var ErrMismatch = errors.New("image/label count mismatch")

// Partition is an ordered, immutable sequence of labelled images. Pixels
// holds Len()*Rows*Cols normalised values, one flattened image after another.
type Partition struct {
	Rows, Cols int
	Pixels     []float64
	Labels     []int
}

// Dataset holds disjoint train and test partitions.
type Dataset struct {
	Train Partition
	Test  Partition
}

// Len returns the number of samples.
func (p *Partition) Len() int { return len(p.Labels) }

// ImageSize returns Rows*Cols.
func (p *Partition) ImageSize() int { return p.Rows * p.Cols }

// Image returns a view of the i-th flattened image.
func (p *Partition) Image(i int) []float64 {
	n := p.ImageSize()
	return p.Pixels[i*n : (i+1)*n]
}

// Head returns a view of the first n samples, or the whole partition when n
// is not positive or exceeds Len.
func (p *Partition) Head(n int) Partition {
	if n <= 0 || n >= p.Len() {
		return *p
	}
	return Partition{
		Rows:   p.Rows,
		Cols:   p.Cols,
		Pixels: p.Pixels[:n*p.ImageSize()],
		Labels: p.Labels[:n],
	}
}

// Gather copies the samples at idx into pixels and labels, which must have
// room for len(idx) samples.
func (p *Partition) Gather(idx []int, pixels []float64, labels []int) {
	n := p.ImageSize()
	for k, i := range idx {
		copy(pixels[k*n:(k+1)*n], p.Image(i))
		labels[k] = p.Labels[i]
	}
}

// Shuffled returns a permutation of [0, Len).
func (p *Partition) Shuffled(rng *rand.Rand) []int {
	return rng.Perm(p.Len())
}

// Validate checks shape and label range.
func (p *Partition) Validate() error {
	if p.Rows <= 0 || p.Cols <= 0 {
		return fmt.Errorf("partition has invalid image shape %dx%d", p.Rows, p.Cols)
	}
	if len(p.Pixels) != p.Len()*p.ImageSize() {
		return fmt.Errorf("%w: %d pixels for %d labels", ErrMismatch, len(p.Pixels), p.Len())
	}
	for i, y := range p.Labels {
		if y < 0 || y >= NumClasses {
			return fmt.Errorf("label %d at index %d outside [0,%d)", y, i, NumClasses)
		}
	}
	return nil
}

// normalise converts raw 0-255 bytes into [0,1] floats.
func normalise(raw []byte) []float64 {
	out := make([]float64, len(raw))
	for i, b := range raw {
		out[i] = float64(b) / 255.0
	}
	return out
}

func newPartition(imageFile, labelFile []byte) (Partition, error) {
	count, rows, cols, pixels, err := ParseImages(imageFile)
	if err != nil {
		return Partition{}, err
	}
	raw, err := ParseLabels(labelFile)
	if err != nil {
		return Partition{}, err
	}
	if len(raw) != count {
		return Partition{}, fmt.Errorf("%w: %d images, %d labels", ErrMismatch, count, len(raw))
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	p := Partition{Rows: rows, Cols: cols, Pixels: normalise(pixels), Labels: labels}
	if err := p.Validate(); err != nil {
		return Partition{}, err
	}
	return p, nil
}
