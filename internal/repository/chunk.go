package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/reglens/reglens/internal/domain"
)

// ChunkRepository handles persistence and search over document chunks.
type ChunkRepository struct {
	db       dbtx
	storeDim int
}

func NewChunkRepository(pool *pgxpool.Pool, storeDim int) *ChunkRepository {
	return &ChunkRepository{db: pool, storeDim: storeDim}
}

func NewChunkRepositoryWithTx(tx pgx.Tx, storeDim int) *ChunkRepository {
	return &ChunkRepository{db: tx, storeDim: storeDim}
}

// InsertChunks appends chunks for a document. Embeddings with a dimension
// other than the store's are rejected as a validation error rather than
// silently coerced. The UNIQUE (document_id, ordinal) constraint governs
// collisions: a duplicate write loses quietly.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		if err := domain.ValidateChunk(c); err != nil {
			return err
		}
		if len(c.Embedding) > 0 && len(c.Embedding) != r.storeDim {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
				fmt.Sprintf("chunk %s ordinal %d has embedding of dimension %d, store expects %d",
					c.DocumentID, c.Ordinal, len(c.Embedding), r.storeDim),
				domain.ErrDimensionMismatch)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		// Failed embeddings persist as NULL so degraded chunks stay
		// identifiable and re-embeddable; they never match vector search.
		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 && !c.EmbeddingFailed {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, ordinal, content, token_estimate, keywords,
				 start_offset, end_offset, embedding, embedding_failed, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (document_id, ordinal) DO NOTHING`,
			c.ID, c.DocumentID, c.Ordinal, c.Content, c.TokenEstimate, c.Keywords,
			c.StartOffset, c.EndOffset, embedding, c.EmbeddingFailed, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// VectorSearch ranks chunks by similarity to vec, descending, filtered to
// similarity strictly above threshold. Similarity is 1/(1+cosine distance),
// which lies in (0, 1].
func (r *ChunkRepository) VectorSearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, ordinal, content, keywords,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunks
		 WHERE embedding IS NOT NULL
		   AND 1.0 / (1.0 + (embedding <=> $1)) > $2
		 ORDER BY score DESC, seq ASC
		 LIMIT $3`,
		pgvector.NewVector(vec), threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// KeywordSearch returns chunks whose keyword set plausibly matches any of
// terms (exact or substring in either direction), in insertion order. The
// retrieval engine computes the per-chunk match score; this is the store
// primitive that narrows the candidate set.
func (r *ChunkRepository) KeywordSearch(ctx context.Context, terms []string, limit int) ([]domain.SearchResult, error) {
	if len(terms) == 0 {
		return []domain.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, ordinal, content, keywords, 0.0 AS score
		 FROM chunks
		 WHERE keywords IS NOT NULL AND cardinality(keywords) > 0
		   AND EXISTS (
			SELECT 1
			FROM unnest(keywords) AS kw, unnest($1::text[]) AS term
			WHERE kw = term
			   OR kw LIKE '%' || term || '%'
			   OR term LIKE '%' || kw || '%'
		   )
		 ORDER BY seq ASC
		 LIMIT $2`,
		terms, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// ChunkWindow returns the chunks of a document with ordinal in [lo, hi],
// ordered by ordinal ascending.
func (r *ChunkRepository) ChunkWindow(ctx context.Context, documentID string, lo, hi int) ([]domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, ordinal, content, keywords, 0.0 AS score
		 FROM chunks
		 WHERE document_id = $1 AND ordinal BETWEEN $2 AND $3
		 ORDER BY ordinal ASC`,
		documentID, lo, hi,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// DeleteChunks removes all chunks of a document.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

func scanSearchResults(rows pgx.Rows) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0)
	for rows.Next() {
		var sr domain.SearchResult
		if err := rows.Scan(&sr.ChunkID, &sr.DocumentID, &sr.Ordinal, &sr.Content, &sr.Keywords, &sr.Score); err != nil {
			return nil, err
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}
