package util

import "testing"

func TestMaskCode(t *testing.T) {
	cases := map[string]string{
		"ABCD-EFGH-JKLM":    "ABCD-****-JKLM",
		"  ABCD-EFGH-JKLM ": "ABCD-****-JKLM",
		"ABCDEFGHJKLM":      "ABCD...JKLM",
		"ABCDEF":            "AB...EF",
		"ABC":               "A...C",
		"AB":                "AB",
	}
	for in, want := range cases {
		if got := MaskCode(in); got != want {
			t.Fatalf("MaskCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	got := MaskSensitiveQuery("code=ABCD-EFGH-JKLM&page=2&access_token=abcdefghijkl")
	want := "code=ABCD-%2A%2A%2A%2A-JKLM&page=2&access_token=abcd...ijkl"
	if got != want {
		t.Fatalf("MaskSensitiveQuery = %q, want %q", got, want)
	}
	if got := MaskSensitiveQuery("order_id=O-1&active=true"); got != "order_id=O-1&active=true" {
		t.Fatalf("expected untouched query, got %q", got)
	}
	if got := MaskSensitiveQuery(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
