package embed

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewHashEmbedder(32)
	a, err := e.Embed(context.Background(), "quantum computing")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "quantum computing")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings for identical text differ at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_DifferentTextDifferentVector(t *testing.T) {
	t.Parallel()

	e := NewHashEmbedder(32)
	a, _ := e.Embed(context.Background(), "alpha")
	b, _ := e.Embed(context.Background(), "beta")
	if CosineFloat32(a, b) >= 0.999999 {
		t.Fatalf("expected distinct vectors for distinct text")
	}
}

func TestCosineFloat64_SelfSimilarityIsOne(t *testing.T) {
	t.Parallel()

	v := []float64{0.2, 0.3, 0.5}
	got := CosineFloat64(v, v)
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("self cosine = %v, want 1", got)
	}
}

func TestCosineFloat64_MismatchedLengths(t *testing.T) {
	t.Parallel()

	got := CosineFloat64([]float64{1, 2}, []float64{1})
	if got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}
