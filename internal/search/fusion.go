package search

import (
	"sort"

	"github.com/medleyre/leasehound/internal/store"
)

// Fuser merges ranked candidate lists with weighted Reciprocal Rank Fusion.
//
// Each source contributes weight/(K+rank) for every chunk it ranked, with
// rank counted from 1. A chunk absent from a source receives no
// contribution from it, so single-source chunks compete on their one
// contribution alone.
type Fuser struct {
	// K is the RRF smoothing constant. Zero means DefaultRRFConstant.
	K int
}

// NewFuser creates a Fuser with the given smoothing constant.
func NewFuser(k int) *Fuser {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fuser{K: k}
}

// Fuse merges the lexical and vector candidate lists into a single ranking.
// topN limits the output length; topN <= 0 returns the full union.
//
// The output order is a total order: fused score descending, then vector
// rank ascending (absent last), then lexical rank ascending (absent last),
// then chunk id ascending. Identical inputs always produce identical output.
func (f *Fuser) Fuse(lexical, vector []*store.ScoredCandidate, weights Weights, topN int) []*FusedResult {
	if weights.IsZero() {
		weights = DefaultWeights()
	}

	k := float64(f.K)
	if f.K <= 0 {
		k = DefaultRRFConstant
	}

	merged := make(map[string]*FusedResult, len(lexical)+len(vector))

	getOrCreate := func(chunkID string) *FusedResult {
		if r, ok := merged[chunkID]; ok {
			return r
		}
		r := &FusedResult{ChunkID: chunkID}
		merged[chunkID] = r
		return r
	}

	for i, cand := range lexical {
		rank := cand.Rank
		if rank <= 0 {
			rank = i + 1
		}
		r := getOrCreate(cand.ChunkID)
		r.LexicalRank = rank
		r.Score += weights.Lexical / (k + float64(rank))
	}

	for i, cand := range vector {
		rank := cand.Rank
		if rank <= 0 {
			rank = i + 1
		}
		r := getOrCreate(cand.ChunkID)
		r.VectorRank = rank
		r.Score += weights.Vector / (k + float64(rank))
	}

	results := make([]*FusedResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return compareFused(results[i], results[j])
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	return results
}

// compareFused reports whether a sorts before b.
func compareFused(a, b *FusedResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if ra, rb := rankOrMax(a.VectorRank), rankOrMax(b.VectorRank); ra != rb {
		return ra < rb
	}
	if ra, rb := rankOrMax(a.LexicalRank), rankOrMax(b.LexicalRank); ra != rb {
		return ra < rb
	}
	return a.ChunkID < b.ChunkID
}

// rankOrMax maps "absent from list" (rank 0) after every real rank.
func rankOrMax(rank int) int {
	if rank <= 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}
