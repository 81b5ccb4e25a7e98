package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

// HNSWVectorIndex implements VectorIndex with the coder/hnsw pure Go graph.
// Cosine similarity over normalized vectors.
type HNSWVectorIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	// Chunk ids are strings; the graph keys on uint64. Both directions of
	// the mapping are kept in memory and persisted alongside the graph.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// hnswMetadata stores ID mappings for persistence.
type hnswMetadata struct {
	IDMap      map[string]uint64
	NextKey    uint64
	Dimensions int
}

// NewHNSWVectorIndex creates an empty vector index for the given embedding
// dimensionality.
func NewHNSWVectorIndex(dimensions int) (*HNSWVectorIndex, error) {
	if dimensions <= 0 {
		return nil, qerrors.New(qerrors.ErrCodeInvalidInput,
			fmt.Sprintf("dimensions must be positive, got %d", dimensions), nil)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSWVectorIndex{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
	}, nil
}

// Add inserts or replaces vectors keyed by chunk id.
func (s *HNSWVectorIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return qerrors.New(qerrors.ErrCodeInvalidInput,
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.dimensions {
			return qerrors.New(qerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", s.dimensions, len(v)), nil)
		}
	}

	for i, id := range ids {
		// Re-adding an existing id uses lazy deletion: the old node stays
		// in the graph but loses its key mapping. Deleting graph nodes in
		// coder/hnsw can break the graph when the last node is removed.
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[id] = key
		s.keyMap[key] = id
	}

	return nil
}

// Search returns up to k candidates ranked by cosine similarity descending.
func (s *HNSWVectorIndex) Search(ctx context.Context, query []float32, k int) ([]*ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	if len(query) != s.dimensions {
		return nil, qerrors.New(qerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", s.dimensions, len(query)), nil)
	}

	if s.graph.Len() == 0 {
		return []*ScoredCandidate{}, nil
	}

	normalizedQuery := make([]float32, len(query))
	copy(normalizedQuery, query)
	normalizeVectorInPlace(normalizedQuery)

	nodes := s.graph.Search(normalizedQuery, k)

	candidates := make([]*ScoredCandidate, 0, len(nodes))
	for _, node := range nodes {
		id, exists := s.keyMap[node.Key]
		if !exists {
			// Lazy-deleted orphan, skip.
			continue
		}

		distance := s.graph.Distance(normalizedQuery, node.Value)
		candidates = append(candidates, &ScoredCandidate{
			ChunkID: id,
			Score:   float64(cosineDistanceToScore(distance)),
			Rank:    len(candidates) + 1,
		})
	}

	return candidates, nil
}

// Delete removes vectors by chunk id using lazy deletion.
func (s *HNSWVectorIndex) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}

	return nil
}

// Count returns the number of live vectors (orphans excluded).
func (s *HNSWVectorIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Dimensions returns the embedding dimensionality the index was built for.
func (s *HNSWVectorIndex) Dimensions() int {
	return s.dimensions
}

// Save persists the graph and id mappings to disk.
// Uses atomic save (temp file + rename).
func (s *HNSWVectorIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	if err := s.saveMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	return nil
}

func (s *HNSWVectorIndex) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := hnswMetadata{
		IDMap:      s.idMap,
		NextKey:    s.nextKey,
		Dimensions: s.dimensions,
	}

	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close temp file during cleanup", slog.String("error", closeErr.Error()))
		}
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Load restores the graph and id mappings from disk.
func (s *HNSWVectorIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	return nil
}

func (s *HNSWVectorIndex) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close metadata file", slog.String("error", err.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode hnsw metadata: %w", err)
	}

	s.idMap = meta.IDMap
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	s.nextKey = meta.NextKey
	s.dimensions = meta.Dimensions

	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	return nil
}

// Close releases resources.
func (s *HNSWVectorIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.graph = nil

	return nil
}

// ReadVectorIndexDimensions reads the dimensionality from an existing index's
// metadata file. Returns 0 when no index exists yet.
func ReadVectorIndexDimensions(vectorPath string) (int, error) {
	file, err := os.Open(vectorPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open hnsw metadata: %w", err)
	}
	defer file.Close()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("decode hnsw metadata: %w", err)
	}

	return meta.Dimensions, nil
}

var _ VectorIndex = (*HNSWVectorIndex)(nil)

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// cosineDistanceToScore converts cosine distance (0 to 2) to a similarity
// score in [0, 1].
func cosineDistanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}
