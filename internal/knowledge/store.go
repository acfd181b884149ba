// Package knowledge persists documents and their embedded chunks in
// PostgreSQL and answers nearest-neighbor queries over pgvector.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saludplus/asistente/internal/rag"
)

// DB is the subset of pgxpool.Pool the store needs. Defined by the consumer
// so tests can substitute a lighter implementation.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages documents and chunks with vector search capabilities.
// Chunks are immutable once written and only removed through their parent
// document's cascade delete.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store. logger may be nil.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// CreateDocument inserts a document and returns its generated id.
// sourceURI and docType may be nil.
func (s *Store) CreateDocument(ctx context.Context, title string, sourceURI, docType *string) (int64, error) {
	const sql = `INSERT INTO documents (title, source_uri, type) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := s.db.QueryRow(ctx, sql, title, sourceURI, docType).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting document %q: %w", title, err)
	}

	s.logger.Debug("created document", "id", id, "title", title)
	return id, nil
}

// InsertChunk appends one chunk record with its embedding. The embedding is
// written through the pgvector binary codec, never as a string literal, so
// the storage-specific vector format stays behind this boundary. Existing
// chunks are never mutated.
func (s *Store) InsertChunk(ctx context.Context, documentID int64, idx int, content string, embedding []float32) error {
	const sql = `INSERT INTO chunks (document_id, idx, content, embedding) VALUES ($1, $2, $3, $4)`

	vec := pgvector.NewVector(embedding)
	if _, err := s.db.Exec(ctx, sql, documentID, idx, content, vec); err != nil {
		return fmt.Errorf("inserting chunk %d of document %d: %w", idx, documentID, err)
	}
	return nil
}

// Search returns up to limit chunks ordered by ascending cosine distance to
// the query embedding. Document title and source are joined in so callers
// need no per-hit metadata lookup. An empty store yields an empty slice.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int) ([]rag.Hit, error) {
	const sql = `
		SELECT c.id, c.document_id, c.idx, c.content,
		       c.embedding <=> $1 AS distance,
		       d.title, COALESCE(d.source_uri, '')
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY c.embedding <=> $1
		LIMIT $2`

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx, sql, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]rag.Hit, 0, limit)
	for rows.Next() {
		var h rag.Hit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Idx, &h.Content, &h.Distance, &h.Title, &h.SourceURI); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		h.Similarity = 1 - h.Distance
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	return hits, nil
}

// ListDocuments returns document summaries ordered by recency.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	const sql = `SELECT id, title, source_uri, type, updated_at FROM documents ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.SourceURI, &d.Type, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document; the chunks cascade in the database.
// Returns ErrDocumentNotFound when the id is unknown.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	const sql = `DELETE FROM documents WHERE id = $1`

	tag, err := s.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
	}

	s.logger.Debug("deleted document", "id", id)
	return nil
}

// CountChunks returns the number of stored chunks for a document.
func (s *Store) CountChunks(ctx context.Context, documentID int64) (int, error) {
	const sql = `SELECT COUNT(*) FROM chunks WHERE document_id = $1`

	var count int
	if err := s.db.QueryRow(ctx, sql, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks of document %d: %w", documentID, err)
	}
	return count, nil
}
