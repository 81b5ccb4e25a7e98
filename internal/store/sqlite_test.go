package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

func newTestChunkStore(t *testing.T) *SQLiteChunkStore {
	t.Helper()
	s, err := NewSQLiteChunkStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteChunkStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	chunks := []*Chunk{
		leaseChunk("c1", "Base rent is $4,500.", "Summit Coffee", "Rent"),
		leaseChunk("c2", "Deposit due on execution.", "Harbor Books", "Deposit"),
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := s.GetChunks(ctx, []string{"c2", "c1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Input order is preserved, not insertion order.
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)
	assert.Equal(t, "Summit Coffee", got[1].Tenant())
	assert.Equal(t, "Rent", got[1].Section)
	assert.NotZero(t, got[1].CreatedAt)
}

func TestSQLiteChunkStore_DanglingChunk(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		leaseChunk("c1", "text", "T", "S"),
	}))

	_, err := s.GetChunks(ctx, []string{"c1", "ghost"})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeDanglingChunk))
}

func TestSQLiteChunkStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		leaseChunk("c1", "old text", "T", "S"),
	}))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		leaseChunk("c1", "new text", "T", "S"),
	}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.GetChunks(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, "new text", got[0].Text)
}

func TestSQLiteChunkStore_Tenants(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		leaseChunk("c1", "t", "Summit Coffee", "Rent"),
		leaseChunk("c2", "t", "Harbor Books", "Rent"),
		leaseChunk("c3", "t", "Summit Coffee", "Deposit"),
		{ID: "c4", Text: "no tenant", DocumentID: "d"},
	}))

	tenants, err := s.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harbor Books", "Summit Coffee"}, tenants)
}

func TestSQLiteChunkStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		leaseChunk("c1", "t", "A", "S"),
		leaseChunk("c2", "t", "B", "S"),
	}))

	require.NoError(t, s.DeleteChunks(ctx, []string{"c1", "missing"}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteChunkStore_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	assert.NoError(t, s.SaveChunks(ctx, nil))
	assert.NoError(t, s.DeleteChunks(ctx, nil))

	got, err := s.GetChunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteChunkStore_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteChunkStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Count(ctx)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeStoreClosed))

	err = s.SaveChunks(ctx, []*Chunk{leaseChunk("c1", "t", "A", "S")})
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeStoreClosed))
}

func TestFilter_Matches(t *testing.T) {
	chunk := leaseChunk("c1", "t", "Summit Coffee", "Rent")

	assert.True(t, Filter(nil).Matches(chunk))
	assert.True(t, Filter{}.Matches(chunk))
	assert.True(t, Filter{MetadataKeyTenant: "Summit Coffee"}.Matches(chunk))
	assert.False(t, Filter{MetadataKeyTenant: "Harbor Books"}.Matches(chunk))
	assert.False(t, Filter{MetadataKeyTenant: "Summit Coffee", "floor": "2"}.Matches(chunk))

	bare := &Chunk{ID: "c2", Text: "t"}
	assert.False(t, Filter{MetadataKeyTenant: "Summit Coffee"}.Matches(bare))
}
