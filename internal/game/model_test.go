package game

import (
	"errors"
	"testing"
)

func TestValidateTicker(t *testing.T) {
	valid := map[string]string{"1301": "1301", " 7203 ": "7203", "abc1": "ABC1"}
	for in, want := range valid {
		got, err := ValidateTicker(in)
		if err != nil {
			t.Fatalf("expected ticker %q to be valid: %v", in, err)
		}
		if got != want {
			t.Fatalf("ticker %q normalised to %q, want %q", in, got, want)
		}
	}

	invalid := []string{"", "12-34", "TOOLONGTICK", "a_b"}
	for _, in := range invalid {
		if _, err := ValidateTicker(in); !errors.Is(err, ErrInvalidTicker) {
			t.Fatalf("expected ticker %q to fail with ErrInvalidTicker, got %v", in, err)
		}
	}
}

func TestValidateName(t *testing.T) {
	got, err := validateName("  Mirai   Ramen  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Mirai Ramen" {
		t.Fatalf("got %q", got)
	}
	if _, err := validateName("   "); err == nil {
		t.Fatalf("expected blank name to fail")
	}
}

func TestRounding(t *testing.T) {
	tests := []struct {
		v, unit, want float64
	}{
		{v: 1_234_567, unit: 1_000_000, want: 1_000_000},
		{v: 1_500_000, unit: 1_000_000, want: 2_000_000},
		{v: 42.5, unit: 0, want: 42.5},
	}
	for _, tc := range tests {
		if got := roundTo(tc.v, tc.unit); got != tc.want {
			t.Fatalf("roundTo(%v, %v) = %v, want %v", tc.v, tc.unit, got, tc.want)
		}
	}
	if got := round2(76923.0769); got != 76923.08 {
		t.Fatalf("round2 = %v", got)
	}
	if clamp(5, 0, 1) != 1 || clamp(-1, 0, 1) != 0 || clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("clamp out of range")
	}
}

func TestActionErrorUnwraps(t *testing.T) {
	err := actionErr("take_loan", ErrCreditLimit)
	var ae *ActionError
	if !errors.As(err, &ae) || ae.Action != "take_loan" {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if !errors.Is(err, ErrCreditLimit) {
		t.Fatalf("expected wrapped ErrCreditLimit")
	}
	if actionErr("x", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}
