package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medleyre/leasehound/internal/ai"
	"github.com/medleyre/leasehound/internal/ai/mock"
)

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	inner := mock.NewEmbedder(8)
	cached := ai.NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := cached.EmbedText(ctx, "base rent")
	require.NoError(t, err)
	second, err := cached.EmbedText(ctx, "base rent")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls(), "second call served from cache")
}

func TestCachedEmbedder_DistinctTextsMiss(t *testing.T) {
	inner := mock.NewEmbedder(8)
	cached := ai.NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.EmbedText(ctx, "base rent")
	require.NoError(t, err)
	_, err = cached.EmbedText(ctx, "security deposit")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachedEmbedder_BatchPartialCache(t *testing.T) {
	inner := mock.NewEmbedder(8)
	cached := ai.NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	warm, err := cached.EmbedText(ctx, "base rent")
	require.NoError(t, err)
	callsAfterWarm := inner.Calls()

	vectors, err := cached.EmbedTexts(ctx, []string{"base rent", "security deposit"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	assert.Equal(t, warm, vectors[0], "cached vector reused in batch")
	// Only the uncached text reached the inner embedder.
	assert.Equal(t, callsAfterWarm+1, inner.Calls())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	cached := ai.NewCachedEmbedder(mock.NewEmbedder(8), 10)

	vectors, err := cached.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := mock.NewEmbedder(8)
	cached := ai.NewCachedEmbedder(inner, 10)

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
}
