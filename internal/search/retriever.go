package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medleyre/leasehound/internal/ai"
	qerrors "github.com/medleyre/leasehound/internal/errors"
	"github.com/medleyre/leasehound/internal/store"
)

// Options controls a single retrieval.
type Options struct {
	// TopN is the number of fused results to return. Zero uses the
	// retriever default.
	TopN int

	// Filter restricts results to chunks whose metadata matches.
	Filter store.Filter

	// Weights overrides the retriever's fusion weights when non-zero.
	Weights Weights

	// Mode selects the participating sources. Empty means hybrid.
	Mode Mode
}

// Result is a fused retrieval hit enriched with its chunk.
type Result struct {
	Chunk       *store.Chunk
	Score       float64
	VectorRank  int
	LexicalRank int
}

// Config holds retriever tuning parameters.
type Config struct {
	Weights     Weights
	RRFConstant int
	TopN        int
	VectorK     int
	LexicalK    int

	// SearchTimeout bounds the parallel sub-index searches, retries
	// included. Zero means no deadline beyond the caller's context.
	SearchTimeout time.Duration

	// Retry is the policy for transient sub-index and embedding failures.
	Retry qerrors.RetryConfig
}

// DefaultConfig returns the retriever defaults.
func DefaultConfig() Config {
	return Config{
		Weights:     DefaultWeights(),
		RRFConstant: DefaultRRFConstant,
		TopN:        10,
		VectorK:     20,
		LexicalK:    20,
		Retry:       qerrors.DefaultRetryConfig(),
	}
}

// Retriever executes hybrid retrieval: both indices are searched in
// parallel, ranked lists are fused with RRF, and hits are enriched from
// the chunk store.
type Retriever struct {
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	chunks   store.ChunkStore
	embedder ai.Embedder
	fuser    *Fuser
	config   Config
	logger   *slog.Logger
}

// NewRetriever creates a retriever. All dependencies are required.
func NewRetriever(
	lexical store.LexicalIndex,
	vector store.VectorIndex,
	chunks store.ChunkStore,
	embedder ai.Embedder,
	config Config,
) (*Retriever, error) {
	if lexical == nil {
		return nil, fmt.Errorf("nil dependency: lexical index is required")
	}
	if vector == nil {
		return nil, fmt.Errorf("nil dependency: vector index is required")
	}
	if chunks == nil {
		return nil, fmt.Errorf("nil dependency: chunk store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("nil dependency: embedder is required")
	}

	if config.TopN <= 0 {
		config.TopN = DefaultConfig().TopN
	}
	if config.VectorK <= 0 {
		config.VectorK = DefaultConfig().VectorK
	}
	if config.LexicalK <= 0 {
		config.LexicalK = DefaultConfig().LexicalK
	}
	if config.Weights.IsZero() {
		config.Weights = DefaultWeights()
	}
	if config.Retry.MaxRetries == 0 && config.Retry.InitialDelay == 0 {
		config.Retry = qerrors.DefaultRetryConfig()
	}

	return &Retriever{
		lexical:  lexical,
		vector:   vector,
		chunks:   chunks,
		embedder: embedder,
		fuser:    NewFuser(config.RRFConstant),
		config:   config,
		logger:   slog.Default().With("component", "retriever"),
	}, nil
}

// Retrieve runs hybrid retrieval for the query. A blank query returns no
// results. Transient sub-index failures are retried once; a source that
// stays down fails the whole retrieval rather than silently degrading the
// ranking.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]*Result, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}, nil
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = r.config.TopN
	}
	weights := opts.Weights
	if weights.IsZero() {
		weights = r.config.Weights
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	lexicalHits, vectorHits, err := r.parallelSearch(ctx, query, opts.Filter, mode)
	if err != nil {
		return nil, err
	}

	// Fuse the full union; truncation happens after the metadata filter so
	// a filtered-out chunk cannot consume a result slot.
	fused := r.fuser.Fuse(lexicalHits, vectorHits, weights, 0)

	results, err := r.enrich(ctx, fused, opts.Filter, topN)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieval_complete",
		slog.String("query", query),
		slog.Int("lexical_hits", len(lexicalHits)),
		slog.Int("vector_hits", len(vectorHits)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// parallelSearch runs the participating sub-index searches concurrently.
// Each side applies the bounded retry policy independently.
func (r *Retriever) parallelSearch(ctx context.Context, query string, filter store.Filter, mode Mode) (
	lexicalHits []*store.ScoredCandidate,
	vectorHits []*store.ScoredCandidate,
	err error,
) {
	if r.config.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.SearchTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	if mode == ModeHybrid || mode == ModeLexical {
		g.Go(func() error {
			hits, lexErr := qerrors.RetryWithResult(gctx, r.config.Retry, func() ([]*store.ScoredCandidate, error) {
				return r.lexical.Search(gctx, query, r.config.LexicalK, filter)
			})
			if lexErr != nil {
				r.logger.Warn("lexical search failed after retry",
					slog.String("error", lexErr.Error()))
				return qerrors.RetrievalUnavailable(lexErr).WithDetail("source", "lexical")
			}
			lexicalHits = hits
			return nil
		})
	}

	if mode == ModeHybrid || mode == ModeVector {
		g.Go(func() error {
			embedding, embErr := qerrors.RetryWithResult(gctx, r.config.Retry, func() ([]float32, error) {
				return r.embedder.EmbedText(gctx, query)
			})
			if embErr != nil {
				r.logger.Warn("query embedding failed after retry",
					slog.String("error", embErr.Error()))
				return qerrors.RetrievalUnavailable(embErr).WithDetail("source", "embedding")
			}

			hits, vecErr := qerrors.RetryWithResult(gctx, r.config.Retry, func() ([]*store.ScoredCandidate, error) {
				return r.vector.Search(gctx, embedding, r.config.VectorK)
			})
			if vecErr != nil {
				r.logger.Warn("vector search failed after retry",
					slog.String("error", vecErr.Error()))
				return qerrors.RetrievalUnavailable(vecErr).WithDetail("source", "vector")
			}
			vectorHits = hits
			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	return lexicalHits, vectorHits, nil
}

// enrich resolves fused ids to chunks, applies the metadata filter to hits
// from the unfiltered vector side, and truncates to topN.
func (r *Retriever) enrich(ctx context.Context, fused []*FusedResult, filter store.Filter, topN int) ([]*Result, error) {
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}

	chunks, err := r.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, topN)
	for i, chunk := range chunks {
		if !filter.Matches(chunk) {
			continue
		}
		results = append(results, &Result{
			Chunk:       chunk,
			Score:       fused[i].Score,
			VectorRank:  fused[i].VectorRank,
			LexicalRank: fused[i].LexicalRank,
		})
		if len(results) == topN {
			break
		}
	}

	return results, nil
}
