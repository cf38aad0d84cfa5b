package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{" 2.50 ", 2.5, true},
		{"$1,200.50", 1200.5, true},
		{"1,234,567", 1234567, true},
		{"1,234", 1234, true},
		{"-12,500", -12500, true},
		{"0,125", 0.125, true},
		{"1,2345", 1.2345, true},
		{"€ 12", 12, true},
		{"-40", -40, true},
		{"1200", 1200, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCoerceAmountDefaultsToZero(t *testing.T) {
	if got := CoerceAmount("abc"); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := CoerceAmount("1300"); got != 1300 {
		t.Fatalf("expected 1300, got %v", got)
	}
}

func TestCoerceValue(t *testing.T) {
	cases := []struct {
		in  any
		out float64
	}{
		{nil, 0},
		{12.5, 12.5},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{7, 7},
		{"42", 42},
		{"nope", 0},
		{json.Number("3.5"), 3.5},
		{true, 0},
	}
	for i, tc := range cases {
		if got := CoerceValue(tc.in); got != tc.out {
			t.Fatalf("case %d: expected %v, got %v", i, tc.out, got)
		}
	}
}

func TestCoerceJSON(t *testing.T) {
	cases := map[string]float64{
		`12.5`:   12.5,
		`"12.5"`: 12.5,
		`null`:   0,
		`"x"`:    0,
		`{}`:     0,
		``:       0,
	}
	for in, want := range cases {
		if got := CoerceJSON(json.RawMessage(in)); got != want {
			t.Fatalf("%q expected %v, got %v", in, want, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		12.5:  "12.5",
		1300:  "1300",
		0.1:   "0.1",
		-3.25: "-3.25",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatAmount(math.NaN()); got != "0" {
		t.Errorf("NaN rendered as %q", got)
	}
}
