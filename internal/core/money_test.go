package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"450", 45000, true},
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{"0", 0, true},
		{"0.5", 50, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-1", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseDecimalToCents(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDecimalToCents(%q) expected error", tc.in)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{45000, "₹450"},
		{1234, "₹12.34"},
		{1205, "₹12.05"},
		{-1234, "-₹12.34"},
		{0, "₹0"},
	}
	for _, tc := range cases {
		if got := FormatRupees(tc.cents); got != tc.want {
			t.Fatalf("FormatRupees(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
