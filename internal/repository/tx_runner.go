package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/service"
)

// TxRunner provides transaction-bound repositories over a pgx pool.
type TxRunner struct {
	pool     *pgxpool.Pool
	storeDim int
}

func NewTxRunner(pool *pgxpool.Pool, storeDim int) *TxRunner {
	return &TxRunner{pool: pool, storeDim: storeDim}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(s service.TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(&txStore{tx: tx, storeDim: r.storeDim}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txStore struct {
	tx       pgx.Tx
	storeDim int
}

func (s *txStore) UpsertDocument(ctx context.Context, d *domain.Document) (string, error) {
	return NewDocumentRepositoryWithTx(s.tx).Upsert(ctx, d)
}

func (s *txStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	return NewChunkRepositoryWithTx(s.tx, s.storeDim).InsertChunks(ctx, chunks)
}
