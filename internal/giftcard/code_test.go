package giftcard

import (
	"bytes"
	"testing"
)

func TestGenerateCodeFormat(t *testing.T) {
	gen := NewCodeGenerator()
	for i := 0; i < 500; i++ {
		code, err := gen()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ValidCode(code) {
			t.Fatalf("code %q does not match the voucher format", code)
		}
	}
}

func TestGenerateCodeSkipsBiasedBytes(t *testing.T) {
	src := []byte{255, 252, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	code, err := GenerateCode(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if code != "ABCD-EFGH-IJKL" {
		t.Fatalf("code = %q", code)
	}

	digits := []byte{26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 26 + 36, 27 + 36, 0, 0, 0, 0}
	code, err = GenerateCode(bytes.NewReader(digits))
	if err != nil {
		t.Fatalf("generate digits: %v", err)
	}
	if code != "0123-4567-8901" {
		t.Fatalf("digits code = %q", code)
	}
}

func TestGenerateCodeShortReader(t *testing.T) {
	if _, err := GenerateCode(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatalf("expected error from short random source")
	}
}

func TestValidCodeAndNormalize(t *testing.T) {
	valid := []string{"AB12-CD34-EF56", "0000-0000-0000"}
	invalid := []string{"", "ab12-cd34-ef56", "AB12CD34EF56", "AB12-CD34-EF5", "AB12-CD34-EF56-", "AB1_-CD34-EF56"}
	for _, code := range valid {
		if !ValidCode(code) {
			t.Fatalf("expected %q to be valid", code)
		}
	}
	for _, code := range invalid {
		if ValidCode(code) {
			t.Fatalf("expected %q to be invalid", code)
		}
	}
	if got := NormalizeCode("  ab12-cd34-ef56 "); got != "AB12-CD34-EF56" {
		t.Fatalf("normalize = %q", got)
	}
}

func TestParseReason(t *testing.T) {
	if reason, ok := parseReason("insufficient_balance"); !ok || reason != ReasonInsufficientBalance {
		t.Fatalf("parse insufficient_balance = %q, %v", reason, ok)
	}
	if _, ok := parseReason("ok"); ok {
		t.Fatalf("expected ok not to be a rejection reason")
	}
}
