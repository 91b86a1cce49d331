package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIIMasksAPIKeys(t *testing.T) {
	out, changed := RedactPII("key is sk-proj_abcdef123456")
	if !changed || !strings.Contains(out, "[REDACTED_TOKEN]") || strings.Contains(out, "abcdef") {
		t.Fatalf("RedactPII() = %q, %v; want token masked", out, changed)
	}
}

func TestPreview(t *testing.T) {
	got := Preview("hello\n  there   friend", 0)
	if got != "hello there friend" {
		t.Fatalf("Preview() = %q, want collapsed whitespace", got)
	}

	got = Preview("abcdefghij", 4)
	if got != "abcd…" {
		t.Fatalf("Preview() = %q, want %q", got, "abcd…")
	}

	got = Preview("mail khelan05@gmail.com", 100)
	if strings.Contains(got, "gmail") {
		t.Fatalf("Preview() leaked email: %q", got)
	}
}
