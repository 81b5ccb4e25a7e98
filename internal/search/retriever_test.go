package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/medleyre/leasehound/internal/errors"
	"github.com/medleyre/leasehound/internal/store"
)

// fakeLexical is a scripted LexicalIndex.
type fakeLexical struct {
	hits     []*store.ScoredCandidate
	failures int
	calls    int
}

func (f *fakeLexical) Index(ctx context.Context, chunks []*store.Chunk) error { return nil }

func (f *fakeLexical) Search(ctx context.Context, query string, k int, filter store.Filter) ([]*store.ScoredCandidate, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, qerrors.IndexUnavailable("lexical", errors.New("index down"))
	}
	return f.hits, nil
}

func (f *fakeLexical) Delete(ctx context.Context, ids []string) error { return nil }
func (f *fakeLexical) Count() (int, error)                            { return len(f.hits), nil }
func (f *fakeLexical) Close() error                                   { return nil }

// fakeVector is a scripted VectorIndex.
type fakeVector struct {
	hits     []*store.ScoredCandidate
	failures int
	calls    int
}

func (f *fakeVector) Add(ctx context.Context, ids []string, vectors [][]float32) error { return nil }

func (f *fakeVector) Search(ctx context.Context, query []float32, k int) ([]*store.ScoredCandidate, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, qerrors.IndexUnavailable("vector", errors.New("index down"))
	}
	return f.hits, nil
}

func (f *fakeVector) Delete(ctx context.Context, ids []string) error { return nil }
func (f *fakeVector) Count() int                                     { return len(f.hits) }
func (f *fakeVector) Close() error                                   { return nil }

// fakeChunks resolves ids to chunks from a fixed map.
type fakeChunks struct {
	chunks map[string]*store.Chunk
}

func (f *fakeChunks) SaveChunks(ctx context.Context, chunks []*store.Chunk) error { return nil }

func (f *fakeChunks) GetChunks(ctx context.Context, ids []string) ([]*store.Chunk, error) {
	out := make([]*store.Chunk, 0, len(ids))
	for _, id := range ids {
		c, ok := f.chunks[id]
		if !ok {
			return nil, qerrors.DanglingChunk(id)
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChunks) DeleteChunks(ctx context.Context, ids []string) error { return nil }
func (f *fakeChunks) Tenants(ctx context.Context) ([]string, error)        { return nil, nil }
func (f *fakeChunks) Count(ctx context.Context) (int, error)               { return len(f.chunks), nil }
func (f *fakeChunks) Close() error                                         { return nil }

// fakeEmbedder returns a fixed vector, optionally failing first.
type fakeEmbedder struct {
	failures int
	calls    int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, qerrors.New(qerrors.ErrCodeEmbeddingFailed, "embedder down", nil)
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.EmbedText(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

func scored(ids ...string) []*store.ScoredCandidate {
	out := make([]*store.ScoredCandidate, len(ids))
	for i, id := range ids {
		out[i] = &store.ScoredCandidate{ChunkID: id, Score: 1.0 / float64(i+1), Rank: i + 1}
	}
	return out
}

func chunkMap(tenantByID map[string]string) *fakeChunks {
	chunks := make(map[string]*store.Chunk, len(tenantByID))
	for id, tenant := range tenantByID {
		c := &store.Chunk{ID: id, Text: "text " + id}
		if tenant != "" {
			c.Metadata = map[string]string{store.MetadataKeyTenant: tenant}
		}
		chunks[id] = c
	}
	return &fakeChunks{chunks: chunks}
}

func fastRetry() qerrors.RetryConfig {
	return qerrors.RetryConfig{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func newTestRetriever(t *testing.T, lexical *fakeLexical, vector *fakeVector, chunks *fakeChunks, embedder *fakeEmbedder) *Retriever {
	t.Helper()
	r, err := NewRetriever(lexical, vector, chunks, embedder, Config{
		TopN:     10,
		VectorK:  10,
		LexicalK: 10,
		Retry:    fastRetry(),
	})
	require.NoError(t, err)
	return r
}

func TestRetriever_FusesBothSources(t *testing.T) {
	lexical := &fakeLexical{hits: scored("A", "B", "C")}
	vector := &fakeVector{hits: scored("B", "D", "A")}
	chunks := chunkMap(map[string]string{"A": "", "B": "", "C": "", "D": ""})

	r := newTestRetriever(t, lexical, vector, chunks, &fakeEmbedder{})

	results, err := r.Retrieve(context.Background(), "rent", Options{})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "B", results[0].Chunk.ID)
	assert.Equal(t, "A", results[1].Chunk.ID)
	assert.True(t, results[0].VectorRank == 1 && results[0].LexicalRank == 2)
}

func TestRetriever_BlankQuery(t *testing.T) {
	r := newTestRetriever(t, &fakeLexical{}, &fakeVector{}, chunkMap(nil), &fakeEmbedder{})

	results, err := r.Retrieve(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_RetriesTransientFailureOnce(t *testing.T) {
	lexical := &fakeLexical{hits: scored("A"), failures: 1}
	vector := &fakeVector{hits: scored("A")}
	chunks := chunkMap(map[string]string{"A": ""})

	r := newTestRetriever(t, lexical, vector, chunks, &fakeEmbedder{})

	results, err := r.Retrieve(context.Background(), "rent", Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 2, lexical.calls, "initial attempt plus one retry")
}

func TestRetriever_PersistentFailureIsRetrievalUnavailable(t *testing.T) {
	lexical := &fakeLexical{hits: scored("A"), failures: 10}
	vector := &fakeVector{hits: scored("A")}
	chunks := chunkMap(map[string]string{"A": ""})

	r := newTestRetriever(t, lexical, vector, chunks, &fakeEmbedder{})

	_, err := r.Retrieve(context.Background(), "rent", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsRetrievalUnavailable(err))
	assert.Equal(t, 2, lexical.calls, "exactly one retry before giving up")
}

func TestRetriever_EmbeddingFailureIsRetrievalUnavailable(t *testing.T) {
	r := newTestRetriever(t,
		&fakeLexical{hits: scored("A")},
		&fakeVector{hits: scored("A")},
		chunkMap(map[string]string{"A": ""}),
		&fakeEmbedder{failures: 10})

	_, err := r.Retrieve(context.Background(), "rent", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsRetrievalUnavailable(err))
}

func TestRetriever_EmbedderRecoversAfterRetry(t *testing.T) {
	embedder := &fakeEmbedder{failures: 1}
	r := newTestRetriever(t,
		&fakeLexical{hits: scored("A")},
		&fakeVector{hits: scored("A")},
		chunkMap(map[string]string{"A": ""}),
		embedder)

	results, err := r.Retrieve(context.Background(), "rent", Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 2, embedder.calls)
}

func TestRetriever_FilterAppliedBeforeTruncation(t *testing.T) {
	// Six candidates, alternating tenants. With topN 2 and a filter, the
	// two best matching chunks must be returned even though unfiltered
	// truncation would have kept other tenants' chunks.
	lexical := &fakeLexical{hits: scored("A", "B", "C", "D", "E", "F")}
	vector := &fakeVector{}
	chunks := chunkMap(map[string]string{
		"A": "Harbor Books",
		"B": "Summit Coffee",
		"C": "Harbor Books",
		"D": "Summit Coffee",
		"E": "Harbor Books",
		"F": "Summit Coffee",
	})

	r := newTestRetriever(t, lexical, vector, chunks, &fakeEmbedder{})

	results, err := r.Retrieve(context.Background(), "rent", Options{
		TopN:   2,
		Filter: store.Filter{store.MetadataKeyTenant: "Summit Coffee"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].Chunk.ID)
	assert.Equal(t, "D", results[1].Chunk.ID)
}

func TestRetriever_DanglingChunkSurfaces(t *testing.T) {
	lexical := &fakeLexical{hits: scored("A", "ghost")}
	vector := &fakeVector{}
	chunks := chunkMap(map[string]string{"A": ""})

	r := newTestRetriever(t, lexical, vector, chunks, &fakeEmbedder{})

	_, err := r.Retrieve(context.Background(), "rent", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeDanglingChunk))
}

func TestRetriever_LexicalOnlyMode(t *testing.T) {
	lexical := &fakeLexical{hits: scored("A", "B")}
	vector := &fakeVector{failures: 10}
	embedder := &fakeEmbedder{failures: 10}

	r := newTestRetriever(t, lexical, vector, chunkMap(map[string]string{"A": "", "B": ""}), embedder)

	results, err := r.Retrieve(context.Background(), "rent", Options{Mode: ModeLexical})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0, embedder.calls, "lexical mode computes no embedding")
	assert.Equal(t, 0, vector.calls)
}

func TestRetriever_VectorOnlyMode(t *testing.T) {
	lexical := &fakeLexical{failures: 10}
	vector := &fakeVector{hits: scored("A")}

	r := newTestRetriever(t, lexical, vector, chunkMap(map[string]string{"A": ""}), &fakeEmbedder{})

	results, err := r.Retrieve(context.Background(), "rent", Options{Mode: ModeVector})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 0, lexical.calls)
}

// slowLexical blocks until the search context is cancelled.
type slowLexical struct {
	fakeLexical
}

func (s *slowLexical) Search(ctx context.Context, query string, k int, filter store.Filter) ([]*store.ScoredCandidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRetriever_SearchTimeoutBoundsSubSearches(t *testing.T) {
	lexical := &slowLexical{}
	vector := &fakeVector{hits: scored("A")}
	chunks := chunkMap(map[string]string{"A": ""})

	r, err := NewRetriever(lexical, vector, chunks, &fakeEmbedder{}, Config{
		TopN:          10,
		VectorK:       10,
		LexicalK:      10,
		SearchTimeout: 10 * time.Millisecond,
		Retry:         fastRetry(),
	})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "rent", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsRetrievalUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRetriever_NilDependencies(t *testing.T) {
	_, err := NewRetriever(nil, nil, nil, nil, Config{})
	assert.Error(t, err)
}
