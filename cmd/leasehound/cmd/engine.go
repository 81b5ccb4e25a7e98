package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/medleyre/leasehound/internal/ai/openai"
	"github.com/medleyre/leasehound/internal/config"
	"github.com/medleyre/leasehound/internal/query"
	"github.com/medleyre/leasehound/internal/search"
	"github.com/medleyre/leasehound/internal/store"
)

// buildEngine assembles the query engine from configuration. The returned
// cleanup closes every store and should run on command exit.
func buildEngine(cfg *config.Config) (*query.Engine, func(), error) {
	dataDir := cfg.Storage.DataDir

	lexical, err := store.NewBleveLexicalIndex(filepath.Join(dataDir, "lexical.bleve"))
	if err != nil {
		return nil, nil, fmt.Errorf("open lexical index: %w", err)
	}

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	dims := cfg.AI.EmbeddingDimensions
	if storedDims, err := store.ReadVectorIndexDimensions(vectorPath); err == nil && storedDims > 0 {
		dims = storedDims
	}

	vector, err := store.NewHNSWVectorIndex(dims)
	if err != nil {
		lexical.Close()
		return nil, nil, fmt.Errorf("create vector index: %w", err)
	}
	if exists(vectorPath) {
		if err := vector.Load(vectorPath); err != nil {
			lexical.Close()
			return nil, nil, fmt.Errorf("load vector index: %w", err)
		}
	}

	chunks, err := store.NewSQLiteChunkStore(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		lexical.Close()
		vector.Close()
		return nil, nil, fmt.Errorf("open chunk store: %w", err)
	}

	provider, err := openai.NewProvider(cfg.AI)
	if err != nil {
		lexical.Close()
		vector.Close()
		chunks.Close()
		return nil, nil, err
	}
	embedder := provider.CachedEmbedder(cfg.AI.EmbeddingCacheSize)

	retriever, err := search.NewRetriever(lexical, vector, chunks, embedder, search.Config{
		Weights: search.Weights{
			Vector:  cfg.Search.VectorWeight,
			Lexical: cfg.Search.LexicalWeight,
		},
		RRFConstant:   cfg.Search.RRFConstant,
		TopN:          cfg.Search.TopN,
		VectorK:       cfg.Search.VectorK,
		LexicalK:      cfg.Search.LexicalK,
		SearchTimeout: cfg.Search.SearchTimeout.Std(),
	})
	if err != nil {
		lexical.Close()
		vector.Close()
		chunks.Close()
		return nil, nil, err
	}

	engine, err := query.NewEngine(lexical, vector, chunks, embedder, provider.Generator(), retriever, query.Config{
		TopN:               cfg.Search.TopN,
		ContextWindow:      cfg.Session.ContextWindow,
		SessionIdleTimeout: cfg.Session.IdleTimeout.Std(),
		MaxSessions:        cfg.Session.MaxSessions,
	})
	if err != nil {
		lexical.Close()
		vector.Close()
		chunks.Close()
		return nil, nil, err
	}

	cleanup := func() {
		// Persist the vector graph before closing; bleve and sqlite
		// persist as they go.
		_ = vector.Save(vectorPath)
		_ = engine.Close()
	}

	return engine, cleanup, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
