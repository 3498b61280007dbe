package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"10000000.01", 0, false}, // above MaxCents
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 500}
	b := Money{Cents: 200}

	if got := a.Add(b); got.Cents != 700 {
		t.Errorf("Add: got %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 300 {
		t.Errorf("Sub: got %d", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -300 {
		t.Errorf("Sub negative: got %d", got.Cents)
	}
	if got := a.Neg(); got.Cents != -500 {
		t.Errorf("Neg: got %d", got.Cents)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering wrong")
	}
	if !a.IsPositive() || a.IsNegative() || a.IsZero() {
		t.Error("sign tests on positive value wrong")
	}
	if !(Money{}).IsZero() {
		t.Error("zero value should be zero")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Errorf("1 cent should be valid: %v", err)
	}
	if err := (Money{Cents: MaxCents}).Validate(); err != nil {
		t.Errorf("MaxCents should be valid: %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero expected ErrInvalidAmount, got %v", err)
	}
	if err := (Money{Cents: -100}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative expected ErrInvalidAmount, got %v", err)
	}

	var ve *ValidationError
	if err := (Money{Cents: MaxCents + 1}).Validate(); !errors.As(err, &ve) {
		t.Errorf("overflow expected ValidationError, got %v", err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-1234, "-12.34"},
		{100, "1.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("%d: got %q, want %q", tc.cents, got, tc.want)
		}
	}
}
