package core

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestAmountValue(t *testing.T) {
	if v, ok := AmountValue("100"); !ok || v != 100 {
		t.Fatalf("expected 100, got %v ok=%v", v, ok)
	}
	if v, ok := AmountValue("0,1"); !ok || math.Abs(v-0.1) > 1e-12 {
		t.Fatalf("expected 0.1, got %v ok=%v", v, ok)
	}
	if _, ok := AmountValue("twelve"); ok {
		t.Fatal("expected not ok for non-numeric amount")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1234.5); got != "1234.50" {
		t.Fatalf("unexpected format: %s", got)
	}
}
