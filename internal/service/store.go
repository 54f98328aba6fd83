package service

import (
	"context"

	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/embedding"
)

// DocumentStore is the persistence port for documents and chunks. The
// store owns the vector/keyword query primitives; ANN internals are its
// concern, not this package's.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, d *domain.Document) (string, error)
	GetDocumentByExternalID(ctx context.Context, externalID string) (*domain.Document, error)
	GetDocumentByID(ctx context.Context, id string) (*domain.Document, error)
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	VectorSearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.SearchResult, error)
	KeywordSearch(ctx context.Context, terms []string, limit int) ([]domain.SearchResult, error)
	ChunkWindow(ctx context.Context, documentID string, lo, hi int) ([]domain.SearchResult, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteChunks(ctx context.Context, documentID string) error
}

// DocumentSource lists and fetches raw corpus documents, page by page.
type DocumentSource interface {
	ListDocuments(ctx context.Context, pageToken string) ([]domain.RawDocument, string, error)
	GetDocumentByID(ctx context.Context, id string) (*domain.RawDocument, error)
}

// Chunker splits raw document text into ordered, cleaned chunks.
type Chunker interface {
	ChunkDocument(rawText, docID string) []domain.Chunk
}

// EmbeddingProvider generates embeddings at the provider's native dimension.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.BatchEmbedding, error)
}

// Reducer compresses native embeddings to the store dimension.
type Reducer interface {
	Reduce(vec []float32) []float32
}

// TxStore is the write slice of the store available inside a transaction.
type TxStore interface {
	UpsertDocument(ctx context.Context, d *domain.Document) (string, error)
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
}

// TxRunner executes fn against transaction-bound repositories, committing
// on nil and rolling back on error.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(s TxStore) error) error
}
