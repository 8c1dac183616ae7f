package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderDeterminism(t *testing.T) {
	p := NewMockProvider(16, nil)

	a, err := p.EmbedQuery(context.Background(), "Ada")
	require.NoError(t, err)
	b, err := p.EmbedQuery(context.Background(), "Ada")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := p.EmbedQuery(context.Background(), "Grace")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestMockProviderUnitVectors(t *testing.T) {
	p := NewMockProvider(32, nil)

	vec, err := p.EmbedQuery(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, vec, 32)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestMockProviderBatchMatchesQuery(t *testing.T) {
	p := NewMockProvider(8, nil)

	batch, err := p.EmbedDocuments(context.Background(), []string{"Ada", "Grace"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, err := p.EmbedQuery(context.Background(), "Ada")
	require.NoError(t, err)
	assert.Equal(t, single, batch[0])
}

func TestMockProviderEmptyInput(t *testing.T) {
	p := NewMockProvider(8, nil)

	_, err := p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestMockProviderDefaults(t *testing.T) {
	p := NewMockProvider(0, nil)
	assert.Equal(t, 384, p.Dimension())
}
