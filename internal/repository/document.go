package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/reglens/reglens/internal/domain"
)

// DocumentRepository handles persistence of document aggregate records.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Upsert inserts or refreshes a document record keyed by external id and
// returns the persisted id. Re-ingestion of the same external id updates
// metadata in place.
func (r *DocumentRepository) Upsert(ctx context.Context, d *domain.Document) (string, error) {
	now := time.Now().UTC()
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var embedding *pgvector.Vector
	if len(d.Embedding) > 0 {
		v := pgvector.NewVector(d.Embedding)
		embedding = &v
	}

	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents
			(id, external_id, title, doc_type, issue_date, topics, embedding, chunk_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			doc_type = EXCLUDED.doc_type,
			issue_date = EXCLUDED.issue_date,
			topics = EXCLUDED.topics,
			embedding = EXCLUDED.embedding,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		d.ID, d.ExternalID, d.Title, nullableString(d.DocType), nullableTime(d.IssueDate),
		d.Topics, embedding, d.ChunkCount, createdAt, now,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByExternalID returns the document for an external id, or nil when it
// has not been ingested.
func (r *DocumentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Document, error) {
	return r.get(ctx,
		`SELECT id, external_id, title, doc_type, issue_date, topics, embedding, chunk_count, created_at, updated_at
		 FROM documents WHERE external_id = $1`,
		externalID,
	)
}

// GetByID returns the document for an internal id, or nil when absent.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return r.get(ctx,
		`SELECT id, external_id, title, doc_type, issue_date, topics, embedding, chunk_count, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
}

func (r *DocumentRepository) get(ctx context.Context, query, arg string) (*domain.Document, error) {
	var d domain.Document
	var docType *string
	var issueDate *time.Time
	var embedding *pgvector.Vector

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&d.ID, &d.ExternalID, &d.Title, &docType, &issueDate, &d.Topics,
		&embedding, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if docType != nil {
		d.DocType = *docType
	}
	if issueDate != nil {
		d.IssueDate = *issueDate
	}
	if embedding != nil {
		d.Embedding = embedding.Slice()
	}
	return &d, nil
}

// Delete removes a document; its chunks cascade via the FK constraint.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
