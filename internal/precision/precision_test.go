package precision

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Precision
		bits  int
	}{
		{"double", Double, 64},
		{"single", Single, 32},
		{"half", Half, 16},
		{"FP16", Half, 16},
		{" float32 ", Single, 32},
		{"f64", Double, 64},
	}

	for _, tc := range tests {
		got, err := Parse(tc.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q): expected %v, got %v", tc.input, tc.want, got)
		}
		if got.Bits() != tc.bits {
			t.Errorf("Parse(%q).Bits(): expected %d, got %d", tc.input, tc.bits, got.Bits())
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "halff", "quad", "int8", "doubel"} {
		_, err := Parse(input)
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q): expected ErrInvalid, got %v", input, err)
		}
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	got, err := ParseList([]string{"half", "double"})
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(got) != 2 || got[0] != Half || got[1] != Double {
		t.Fatalf("unexpected order: %v", got)
	}

	if _, err := ParseList([]string{"single", "fp32"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected duplicate to be rejected, got %v", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, p := range All() {
		text, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", p, err)
		}
		var back Precision
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != p {
			t.Fatalf("round trip: expected %v, got %v", p, back)
		}
	}

	if _, err := Precision(0).MarshalText(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected zero value to be invalid, got %v", err)
	}
}
