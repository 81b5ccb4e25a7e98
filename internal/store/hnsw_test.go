package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

func newTestVectorIndex(t *testing.T, dims int) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestHNSWVectorIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 3)

	err := idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Greater(t, results[0].Score, 0.9)
}

func TestHNSWVectorIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 3)

	err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeDimensionMismatch))

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeDimensionMismatch))
}

func TestHNSWVectorIndex_EmptySearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 3)

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWVectorIndex_LazyDelete(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 3)

	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))

	require.NoError(t, idx.Delete(ctx, []string{"a"}))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ChunkID)
	}
}

func TestHNSWVectorIndex_ReAddReplacesVector(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 3)

	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{0, 0, 1}}))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Greater(t, results[0].Score, 0.99)
}

func TestHNSWVectorIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := newTestVectorIndex(t, 3)
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Save(path))

	dims, err := ReadVectorIndexDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)

	loaded := newTestVectorIndex(t, 3)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Count())

	results, err := loaded.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestReadVectorIndexDimensions_Missing(t *testing.T) {
	dims, err := ReadVectorIndexDimensions(filepath.Join(t.TempDir(), "nope.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}

func TestNewHNSWVectorIndex_InvalidDimensions(t *testing.T) {
	_, err := NewHNSWVectorIndex(0)
	assert.Error(t, err)
}
