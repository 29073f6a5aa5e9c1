package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatKES(t *testing.T) {
	tests := map[string]string{
		"0":      "KES 0.00",
		"100":    "KES 100.00",
		"10.5":   "KES 10.50",
		"-250.7": "KES -250.70",
	}

	for in, want := range tests {
		if got := FormatKES(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatKES(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) == BoxPrefix(false) {
		t.Error("Expected distinct prefixes for last and inner items")
	}
}
