package analysis

import "testing"

func TestContentHashDeterministic(t *testing.T) {
	first := ContentHash("hello", []string{"line one", "line two"})
	second := ContentHash("hello", []string{"line one", "line two"})
	if first != second {
		t.Fatal("hash must be deterministic")
	}
	if len(first) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", first)
	}
}

func TestContentHashSensitiveToInputs(t *testing.T) {
	base := ContentHash("hello", []string{"line"})
	if ContentHash("hello!", []string{"line"}) == base {
		t.Fatal("transcript change must alter the hash")
	}
	if ContentHash("hello", []string{"other"}) == base {
		t.Fatal("ocr change must alter the hash")
	}
	// Field separation: moving text between transcript and OCR is a change.
	if ContentHash("helloline", nil) == base {
		t.Fatal("field boundaries must be preserved")
	}
}
