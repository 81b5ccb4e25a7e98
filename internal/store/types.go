// Package store provides persistence for lease document chunks: a BM25
// lexical index (bleve), an HNSW vector index, and a SQLite chunk store
// holding the canonical text and metadata.
package store

import "context"

// Metadata keys with engine-level meaning. Filters match against these.
const (
	// MetadataKeyTenant identifies the tenant a chunk's lease belongs to.
	MetadataKeyTenant = "tenant_name"

	// MetadataKeySection identifies the lease section the chunk came from.
	MetadataKeySection = "section"
)

// Chunk is a unit of retrievable lease text. Chunks are immutable once
// indexed; re-indexing a document replaces its chunks wholesale.
type Chunk struct {
	// ID uniquely identifies the chunk across all indices.
	ID string `json:"id"`

	// Text is the canonical chunk content handed to the generator.
	Text string `json:"text"`

	// DocumentID identifies the source lease document.
	DocumentID string `json:"document_id"`

	// Section is the lease section heading, when known.
	Section string `json:"section,omitempty"`

	// Metadata holds filterable attributes (tenant_name, section, ...).
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is a unix timestamp set when the chunk is first stored.
	CreatedAt int64 `json:"created_at"`
}

// Tenant returns the chunk's tenant name, or empty when unattributed.
func (c *Chunk) Tenant() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetadataKeyTenant]
}

// ScoredCandidate is one entry of a ranked candidate list produced by a
// sub-index. Rank is 1-based within the producing list.
type ScoredCandidate struct {
	ChunkID string
	Score   float64
	Rank    int
}

// Filter restricts a search to chunks whose metadata matches every entry.
// A nil or empty filter matches all chunks.
type Filter map[string]string

// Matches reports whether a chunk satisfies the filter.
func (f Filter) Matches(c *Chunk) bool {
	if len(f) == 0 {
		return true
	}
	for k, want := range f {
		if c.Metadata == nil || c.Metadata[k] != want {
			return false
		}
	}
	return true
}

// LexicalIndex is the keyword retrieval contract (BM25 ranking).
type LexicalIndex interface {
	// Index adds or replaces chunks in the index.
	Index(ctx context.Context, chunks []*Chunk) error

	// Search returns up to k candidates ranked by BM25 score descending,
	// restricted by the optional metadata filter.
	Search(ctx context.Context, query string, k int, filter Filter) ([]*ScoredCandidate, error)

	// Delete removes chunks by id. Missing ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of indexed chunks.
	Count() (int, error)

	Close() error
}

// VectorIndex is the semantic retrieval contract (approximate nearest
// neighbor over embeddings).
type VectorIndex interface {
	// Add inserts or replaces vectors keyed by chunk id.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns up to k candidates ranked by similarity descending.
	Search(ctx context.Context, query []float32, k int) ([]*ScoredCandidate, error)

	// Delete removes vectors by chunk id. Missing ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of live vectors.
	Count() int

	Close() error
}

// ChunkStore is the canonical chunk metadata store. Indices hold only ids
// and derived representations; the store owns the text.
type ChunkStore interface {
	// SaveChunks upserts chunks atomically.
	SaveChunks(ctx context.Context, chunks []*Chunk) error

	// GetChunks resolves ids to chunks, preserving input order. An id
	// unknown to the store yields a dangling-chunk error.
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)

	// DeleteChunks removes chunks by id.
	DeleteChunks(ctx context.Context, ids []string) error

	// Tenants returns the distinct tenant names present in the store.
	Tenants(ctx context.Context) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	Close() error
}
