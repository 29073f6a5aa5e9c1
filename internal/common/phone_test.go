package common

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	valid := map[string]string{
		"0712345678":     "254712345678",
		"+254712345678":  "254712345678",
		"254712345678":   "254712345678",
		"712345678":      "254712345678",
		"0112345678":     "254112345678",
		"+254112345678":  "254112345678",
		"  0712345678  ": "254712345678",
	}

	for in, want := range valid {
		got, err := NormalizePhone(in)
		if err != nil {
			t.Errorf("NormalizePhone(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"12345",
		"0812345678",
		"071234567",
		"07123456789",
		"+255712345678",
		"0712 345 678",
		"07123abcde",
		"2540712345678",
	}

	for _, in := range invalid {
		_, err := NormalizePhone(in)
		if !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("NormalizePhone(%q) expected ErrInvalidPhone, got %v", in, err)
		}
		if err != nil && err.Error() != "invalid phone number" {
			t.Errorf("unexpected message %q", err.Error())
		}
	}
}

func TestNormalizePhone_Deterministic(t *testing.T) {
	first, _ := NormalizePhone("0712345678")
	for i := 0; i < 10; i++ {
		again, _ := NormalizePhone("0712345678")
		if again != first {
			t.Fatalf("NormalizePhone not deterministic: %q vs %q", first, again)
		}
	}
}
