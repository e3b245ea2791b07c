package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("hello world")},
		{"b nil", NewFingerprint("hello world"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := NewFingerprint("limited time offer ends tonight")
	b := NewFingerprint("limited time offer ends tonight")

	got := CosineSimilarity(a, b)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity() = %v, want 1", got)
	}
}

func TestCosineSimilarityCaseAndPunctuation(t *testing.T) {
	a := NewFingerprint("LIMITED time OFFER!!!")
	b := NewFingerprint("limited time offer")

	got := CosineSimilarity(a, b)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity() = %v, want 1", got)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	a := NewFingerprint("follow for more recipes")
	b := NewFingerprint("crazy workout routine")

	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("CosineSimilarity() = %v, want 0", got)
	}
}

func TestTokenizeFiltersShortTokens(t *testing.T) {
	tokens := Tokenize("a an the offer IS on")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[0] != "the" || tokens[1] != "offer" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestFingerprintEmptyText(t *testing.T) {
	if fp := NewFingerprint("!! ??"); fp != nil {
		t.Fatalf("expected nil fingerprint, got %d tokens", fp.TokenCount())
	}
}
