package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"go.uber.org/zap"
)

// MockModelName is the model name reported by the deterministic mock
// provider. It is deliberately loud so mock vectors are recognizable in
// stored payloads and logs.
const MockModelName = "mock-deterministic"

// MockProvider is a deterministic embedding provider for tests and offline
// development. The vector for a text is derived from its hash, so equal
// texts always embed identically and distinct texts almost never collide.
// Similarity scores from mock vectors are meaningless.
type MockProvider struct {
	dimension int

	// Invocations counts EmbedDocuments/EmbedQuery calls, letting tests
	// assert that cached embeddings never reach the provider.
	Invocations int
}

// NewMockProvider creates a mock provider. A non-nil logger gets a warning
// so a mock can never silently serve production traffic.
func NewMockProvider(dimension int, logger *zap.Logger) *MockProvider {
	if dimension <= 0 {
		dimension = 384
	}
	if logger != nil {
		logger.Warn("using deterministic mock embedding provider, similarity scores are meaningless",
			zap.String("model", MockModelName),
			zap.Int("dimension", dimension),
		)
	}
	return &MockProvider{dimension: dimension}
}

var _ Provider = (*MockProvider)(nil)

// vectorFor expands the text's digest into a unit vector.
func (p *MockProvider) vectorFor(text string) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, p.dimension)
	var norm float64
	for i := range vec {
		// Re-hash the digest with the index to get enough bytes for any
		// dimension.
		var buf [sha256.Size + 8]byte
		copy(buf[:], digest[:])
		binary.LittleEndian.PutUint64(buf[sha256.Size:], uint64(i))
		h := sha256.Sum256(buf[:])

		v := float64(int64(binary.LittleEndian.Uint64(h[:8]))) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// EmbedDocuments generates deterministic embeddings for multiple texts.
func (p *MockProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	p.Invocations++
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vectorFor(text)
	}
	return out, nil
}

// EmbedQuery generates a deterministic embedding for a single query.
func (p *MockProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	p.Invocations++
	if text == "" {
		return nil, ErrEmptyInput
	}
	return p.vectorFor(text), nil
}

// Dimension returns the configured dimension.
func (p *MockProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
