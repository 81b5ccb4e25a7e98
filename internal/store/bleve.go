package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

// BleveLexicalIndex wraps Bleve v2 for BM25 keyword search over lease chunks.
type BleveLexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// bleveChunk is the document shape handed to Bleve. Text is analyzed for
// full-text matching; tenant and section are stored verbatim for filtering.
type bleveChunk struct {
	Text       string `json:"text"`
	TenantName string `json:"tenant_name"`
	Section    string `json:"section"`
}

// NewBleveLexicalIndex creates or opens a BM25 index.
// If path is empty, an in-memory index is created.
func NewBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("lexical_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, qerrors.New(qerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("lexical index corrupted at %s and cannot be cleared", path), removeErr)
			}
			slog.Info("lexical_index_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, reindex required"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("lexical_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, qerrors.New(qerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("lexical index corrupted at %s and cannot be cleared", path), removeErr)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveLexicalIndex{index: idx, path: path}, nil
}

// createIndexMapping builds the Bleve mapping: English analysis for chunk
// text, keyword (verbatim) analysis for the filterable metadata fields.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName

	tenantField := bleve.NewTextFieldMapping()
	tenantField.Analyzer = keyword.Name

	sectionField := bleve.NewTextFieldMapping()
	sectionField.Analyzer = keyword.Name

	chunkMapping := bleve.NewDocumentMapping()
	chunkMapping.AddFieldMappingsAt("text", textField)
	chunkMapping.AddFieldMappingsAt("tenant_name", tenantField)
	chunkMapping.AddFieldMappingsAt("section", sectionField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	return indexMapping, nil
}

// validateIndexIntegrity checks a Bleve index directory before opening.
// Returns nil if the index is absent or looks sound.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Index adds or replaces chunks in the index.
func (b *BleveLexicalIndex) Index(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, chunk := range chunks {
		doc := bleveChunk{
			Text:       chunk.Text,
			TenantName: chunk.Tenant(),
			Section:    chunk.Section,
		}
		if err := batch.Index(chunk.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", chunk.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}

	return nil
}

// Search returns up to k candidates ranked by BM25 score descending.
// An empty or whitespace query matches nothing.
func (b *BleveLexicalIndex) Search(ctx context.Context, queryStr string, k int, filter Filter) ([]*ScoredCandidate, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreClosed, "lexical index is closed", nil)
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*ScoredCandidate{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("text")

	var q query.Query = matchQuery
	if len(filter) > 0 {
		conjuncts := []query.Query{matchQuery}
		for field, value := range filter {
			tq := bleve.NewTermQuery(value)
			tq.SetField(field)
			conjuncts = append(conjuncts, tq)
		}
		q = bleve.NewConjunctionQuery(conjuncts...)
	}

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = k

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, qerrors.IndexUnavailable("lexical", err)
	}

	candidates := make([]*ScoredCandidate, 0, len(result.Hits))
	for i, hit := range result.Hits {
		candidates = append(candidates, &ScoredCandidate{
			ChunkID: hit.ID,
			Score:   hit.Score,
			Rank:    i + 1,
		})
	}

	return candidates, nil
}

// Delete removes chunks from the index. Missing ids are ignored.
func (b *BleveLexicalIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	return nil
}

// Count returns the number of indexed chunks.
func (b *BleveLexicalIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, qerrors.New(qerrors.ErrCodeStoreClosed, "lexical index is closed", nil)
	}

	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return int(n), nil
}

// Close closes the index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)
