// Package repository persists documents and chunks in PostgreSQL with
// pgvector and serves the store-side search primitives.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reglens/reglens/internal/domain"
)

// dbtx abstracts a pgx pool or transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Store composes the document and chunk repositories behind the single
// persistence port the service layer consumes.
type Store struct {
	docs   *DocumentRepository
	chunks *ChunkRepository
}

// NewStore creates a Store over pool. storeDim is the vector dimension
// the chunks table is declared with.
func NewStore(pool *pgxpool.Pool, storeDim int) *Store {
	return &Store{
		docs:   NewDocumentRepository(pool),
		chunks: NewChunkRepository(pool, storeDim),
	}
}

func (s *Store) UpsertDocument(ctx context.Context, d *domain.Document) (string, error) {
	return s.docs.Upsert(ctx, d)
}

func (s *Store) GetDocumentByExternalID(ctx context.Context, externalID string) (*domain.Document, error) {
	return s.docs.GetByExternalID(ctx, externalID)
}

func (s *Store) GetDocumentByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, id)
}

func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	return s.chunks.InsertChunks(ctx, chunks)
}

func (s *Store) VectorSearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.SearchResult, error) {
	return s.chunks.VectorSearch(ctx, vec, threshold, limit)
}

func (s *Store) KeywordSearch(ctx context.Context, terms []string, limit int) ([]domain.SearchResult, error) {
	return s.chunks.KeywordSearch(ctx, terms, limit)
}

func (s *Store) ChunkWindow(ctx context.Context, documentID string, lo, hi int) ([]domain.SearchResult, error) {
	return s.chunks.ChunkWindow(ctx, documentID, lo, hi)
}

func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	return s.chunks.DeleteChunks(ctx, documentID)
}
