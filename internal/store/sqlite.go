package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

// SQLiteChunkStore is the canonical chunk store backed by SQLite.
// It owns the chunk text and metadata; the indices hold only derived
// representations keyed by chunk id.
type SQLiteChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	document_id TEXT NOT NULL,
	section     TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

// NewSQLiteChunkStore opens or creates a chunk store at path.
// Use ":memory:" for an ephemeral store in tests.
func NewSQLiteChunkStore(path string) (*SQLiteChunkStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during index rebuilds.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if _, err := db.Exec(chunkSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteChunkStore{db: db}, nil
}

// SaveChunks upserts chunks in a single transaction.
func (s *SQLiteChunkStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "chunk store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, text, document_id, section, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			document_id = excluded.document_id,
			section = excluded.section,
			metadata = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, chunk := range chunks {
		meta := chunk.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %s: %w", chunk.ID, err)
		}

		createdAt := chunk.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}

		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.Text, chunk.DocumentID, chunk.Section,
			string(metaJSON), createdAt); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}

	return nil
}

// GetChunks resolves ids to chunks, preserving input order. An id unknown
// to the store yields a dangling-chunk error rather than a short result.
func (s *SQLiteChunkStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return []*Chunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreClosed, "chunk store is closed", nil)
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, document_id, section, metadata, created_at FROM chunks WHERE id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Chunk, len(ids))
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	result := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, ok := byID[id]
		if !ok {
			return nil, qerrors.DanglingChunk(id)
		}
		result = append(result, chunk)
	}

	return result, nil
}

func scanChunk(rows *sql.Rows) (*Chunk, error) {
	var chunk Chunk
	var metaJSON string
	if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.DocumentID,
		&chunk.Section, &metaJSON, &chunk.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &chunk.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for chunk %s: %w", chunk.ID, err)
	}
	return &chunk, nil
}

// DeleteChunks removes chunks by id. Missing ids are ignored.
func (s *SQLiteChunkStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreClosed, "chunk store is closed", nil)
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	return nil
}

// Tenants returns the distinct tenant names present in the store, sorted.
func (s *SQLiteChunkStore) Tenants(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreClosed, "chunk store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT json_extract(metadata, '$.tenant_name') AS tenant
		FROM chunks
		WHERE tenant IS NOT NULL AND tenant != ''
		ORDER BY tenant`)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}

	return tenants, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, qerrors.New(qerrors.ErrCodeStoreClosed, "chunk store is closed", nil)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

var _ ChunkStore = (*SQLiteChunkStore)(nil)
