// Package search implements hybrid rank fusion: candidate lists from the
// lexical and vector indices are merged with weighted Reciprocal Rank
// Fusion into a single deterministic ranking.
package search

// DefaultRRFConstant is the standard RRF smoothing parameter k.
const DefaultRRFConstant = 60

// Mode selects which retrieval sources participate in a search.
type Mode string

const (
	// ModeHybrid searches both sources and fuses the rankings.
	ModeHybrid Mode = "hybrid"
	// ModeLexical searches only the BM25 index. No embedding is computed.
	ModeLexical Mode = "lexical"
	// ModeVector searches only the vector index.
	ModeVector Mode = "vector"
)

// Weights controls the relative influence of each retrieval source.
// Weights are multiplicative on the RRF contribution and need not sum to 1.
type Weights struct {
	Vector  float64
	Lexical float64
}

// DefaultWeights favors semantic retrieval slightly over keyword matching,
// which works well for conversational lease queries.
func DefaultWeights() Weights {
	return Weights{Vector: 0.6, Lexical: 0.4}
}

// IsZero reports whether both weights are unset.
func (w Weights) IsZero() bool {
	return w.Vector == 0 && w.Lexical == 0
}

// FusedResult is one entry of the fused ranking. VectorRank and LexicalRank
// are 1-based positions in the source lists, 0 when the chunk was absent
// from that source.
type FusedResult struct {
	ChunkID     string
	Score       float64
	VectorRank  int
	LexicalRank int
}

// InBoth reports whether the chunk appeared in both source lists.
func (r *FusedResult) InBoth() bool {
	return r.VectorRank > 0 && r.LexicalRank > 0
}
