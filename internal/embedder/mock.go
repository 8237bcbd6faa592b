// Package embedder provides a pluggable interface for text embedding providers.
package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic, local embedding provider used for tests
// and as an offline fallback when no real provider is configured. It derives
// a pseudo-random unit vector from a hash of the input text, so the same
// text always produces the same vector and different texts are unlikely to
// collide.
type MockEmbedder struct {
	dimension int
}

// NewMock creates a deterministic mock embedding provider of the given dimension.
func NewMock(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (m *MockEmbedder) textToVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float32, m.dimension)
	for i := range vector {
		seed = seed*1103515245 + 12345
		value := float64((seed/65536)%1000) / 1000.0
		vector[i] = float32(value)
	}

	var magnitude float64
	for _, v := range vector {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / magnitude)
		}
	}
	return vector
}

// Embed generates a deterministic embedding for a single text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.textToVector(text), nil
}

// EmbedBatch generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = m.textToVector(t)
	}
	return out, nil
}

// ModelInfo returns the mock provider's capability descriptor.
func (m *MockEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:         "mock",
		Model:            "mock-hash-embed",
		Dimensions:       m.dimension,
		MaxBatchSize:     1000,
		MaxTextLength:    10000,
		IsLocal:          true,
		SupportsBatching: true,
	}
}

// Health always succeeds; the mock provider has no external dependency.
func (m *MockEmbedder) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op for the mock provider.
func (m *MockEmbedder) Close() error {
	return nil
}
