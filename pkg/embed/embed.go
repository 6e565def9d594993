// Package embed provides phrase and sentence embeddings plus the cosine
// similarity helpers used to build SimilarityMatrix values (C4).
// pkg/pipeline builds a fresh HashEmbedder for every job; an ONNXEmbedder
// holds a loaded model session and is shared across all jobs of a process.
package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder produces a fixed-dimension vector for a piece of text. An
// implementation may be backed by an on-disk model (e.g. ONNX) or, for
// deterministic tests and low-resource deployments, a hash-derived vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashEmbedder is a deterministic, dependency-free embedder: the same text
// always yields the same vector, which is sufficient for cosine-similarity
// grouping even though it carries no semantic content beyond lexical
// identity. This is the default backend wired into C4 when no trained
// model is configured.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given
// dimensionality (default 128 if dimensions <= 0).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 128
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic, L2-normalized embedding derived from the
// FNV hash of text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	seed := hashString(text)
	vec := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(seed)*float64(i+1))*0.1 + 0.01)
	}
	normalize(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int { return e.dimensions }

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= norm
	}
}
