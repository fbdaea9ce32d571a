// Package precision enumerates the floating-point widths a benchmark run can
// train at.
package precision

import (
	"errors"
	"fmt"
	"strings"
)

// Precision selects the numeric representation used for every parameter and
// activation of one model. A model never mixes precisions.
type Precision uint8

const (
	Double Precision = iota + 1
	Single
	Half
)

// ErrInvalid is returned for labels that do not name a known precision.
var ErrInvalid = errors.New("invalid precision")

// All returns the precisions in benchmark order.
func All() []Precision {
	return []Precision{Double, Single, Half}
}

// Parse resolves a precision label. Unknown labels are rejected rather than
// mapped to a default.
func Parse(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "double", "float64", "fp64", "f64":
		return Double, nil
	case "single", "float32", "fp32", "f32":
		return Single, nil
	case "half", "float16", "fp16", "f16":
		return Half, nil
	default:
		return 0, fmt.Errorf("%w %q (want double, single or half)", ErrInvalid, s)
	}
}

// ParseList parses each label in order. Duplicates are an error.
func ParseList(labels []string) ([]Precision, error) {
	out := make([]Precision, 0, len(labels))
	seen := make(map[Precision]bool, len(labels))
	for _, label := range labels {
		p, err := Parse(label)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalid, p)
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// Valid reports whether p is one of the enumerated precisions.
func (p Precision) Valid() bool {
	return p >= Double && p <= Half
}

// Bits returns the storage width in bits, or 0 for an invalid value.
func (p Precision) Bits() int {
	switch p {
	case Double:
		return 64
	case Single:
		return 32
	case Half:
		return 16
	default:
		return 0
	}
}

func (p Precision) String() string {
	switch p {
	case Double:
		return "double"
	case Single:
		return "single"
	case Half:
		return "half"
	default:
		return fmt.Sprintf("precision(%d)", uint8(p))
	}
}

// MarshalText encodes p as its label.
func (p Precision) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalid, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a label produced by MarshalText or accepted by Parse.
func (p *Precision) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
