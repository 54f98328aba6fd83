package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reglens/reglens/internal/domain"
)

// IngestionOptions controls a pipeline run. Zero values fall back to the
// pipeline defaults.
type IngestionOptions struct {
	// MaxDocuments caps how many documents are pulled from the source.
	// 0 means no cap.
	MaxDocuments int
	// ProcessingBatchSize is how many documents are chunked and embedded
	// concurrently per batch.
	ProcessingBatchSize int
	// StorageBatchSize is the number of prepared documents buffered
	// before a flush to the store.
	StorageBatchSize int
	// SkipExisting skips documents whose external id is already stored.
	SkipExisting bool
	// EmbeddingsEnabled controls whether this run embeds chunks. When
	// false, chunks are stored unembedded even with a provider wired.
	EmbeddingsEnabled bool
}

// IngestionResult summarizes a pipeline run.
type IngestionResult struct {
	Processed           int      `json:"processed"`
	Skipped             int      `json:"skipped"`
	ChunksCreated       int      `json:"chunks_created"`
	EmbeddingsGenerated int      `json:"embeddings_generated"`
	Errors              []string `json:"errors,omitempty"`
}

// IngestionPipeline pulls documents from a source, chunks and embeds
// them, and persists the results in storage batches. A single failing
// document is recorded in the result and never aborts the run; only
// source listing failures and context cancellation do.
type IngestionPipeline struct {
	source      DocumentSource
	store       DocumentStore
	chunker     Chunker
	provider    EmbeddingProvider
	reducer     Reducer
	tx          TxRunner
	concurrency int
	logger      *zap.Logger
}

// NewIngestionPipeline creates a pipeline. provider may be nil, in which
// case chunks are stored without embeddings.
func NewIngestionPipeline(
	src DocumentSource,
	store DocumentStore,
	chunker Chunker,
	provider EmbeddingProvider,
	reducer Reducer,
	concurrency int,
	logger *zap.Logger,
) *IngestionPipeline {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionPipeline{
		source:      src,
		store:       store,
		chunker:     chunker,
		provider:    provider,
		reducer:     reducer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewIngestionPipelineWithTx creates a pipeline that persists each
// document and its chunks in a single transaction.
func NewIngestionPipelineWithTx(
	src DocumentSource,
	store DocumentStore,
	tx TxRunner,
	chunker Chunker,
	provider EmbeddingProvider,
	reducer Reducer,
	concurrency int,
	logger *zap.Logger,
) *IngestionPipeline {
	p := NewIngestionPipeline(src, store, chunker, provider, reducer, concurrency, logger)
	p.tx = tx
	return p
}

// ingestItem is one prepared document waiting in the storage buffer.
type ingestItem struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// Run executes the pipeline until the source is exhausted, the document
// cap is reached, or ctx is cancelled. The returned result is valid even
// when err is non-nil and reflects the work completed so far.
func (p *IngestionPipeline) Run(ctx context.Context, opts IngestionOptions) (*IngestionResult, error) {
	if opts.ProcessingBatchSize <= 0 {
		opts.ProcessingBatchSize = 8
	}
	if opts.StorageBatchSize <= 0 {
		opts.StorageBatchSize = 32
	}

	res := &IngestionResult{}
	start := time.Now()

	var (
		buffer  []ingestItem
		pending []domain.RawDocument
		token   string
		pulled  int
		done    bool
	)

	for !done {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		docs, next, err := p.source.ListDocuments(ctx, token)
		if err != nil {
			return res, fmt.Errorf("failed to list source documents: %w", err)
		}
		for _, d := range docs {
			if opts.MaxDocuments > 0 && pulled >= opts.MaxDocuments {
				break
			}
			pending = append(pending, d)
			pulled++
		}
		token = next
		done = next == "" || (opts.MaxDocuments > 0 && pulled >= opts.MaxDocuments)

		for len(pending) >= opts.ProcessingBatchSize || (done && len(pending) > 0) {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			n := opts.ProcessingBatchSize
			if n > len(pending) {
				n = len(pending)
			}
			batch := pending[:n]
			pending = pending[n:]

			items := p.processBatch(ctx, batch, opts, res)
			buffer = append(buffer, items...)

			for len(buffer) >= opts.StorageBatchSize {
				if err := ctx.Err(); err != nil {
					return res, err
				}
				p.flush(ctx, buffer[:opts.StorageBatchSize], res)
				buffer = buffer[opts.StorageBatchSize:]
			}
		}
	}

	if len(buffer) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.flush(ctx, buffer, res)
	}

	p.logger.Info("ingestion run finished",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("chunks", res.ChunksCreated),
		zap.Int("embeddings", res.EmbeddingsGenerated),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// processBatch chunks and embeds a batch of documents concurrently.
// Per-document failures land in res.Errors; successful documents come
// back as storage items in batch order.
func (p *IngestionPipeline) processBatch(ctx context.Context, batch []domain.RawDocument, opts IngestionOptions, res *IngestionResult) []ingestItem {
	type slot struct {
		item    *ingestItem
		skipped bool
		err     error
	}
	slots := make([]slot, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	embedded := 0

	for i := range batch {
		i := i
		raw := batch[i]
		g.Go(func() error {
			if opts.SkipExisting {
				existing, err := p.store.GetDocumentByExternalID(gctx, raw.ExternalID)
				if err != nil {
					slots[i].err = fmt.Errorf("document %s: lookup failed: %w", raw.ExternalID, err)
					return nil
				}
				if existing != nil {
					slots[i].skipped = true
					return nil
				}
			}

			if err := domain.ValidateRawDocument(&raw); err != nil {
				slots[i].err = fmt.Errorf("document %s: %w", raw.ExternalID, err)
				return nil
			}

			docID := uuid.New().String()
			chunks := p.chunker.ChunkDocument(raw.Text, docID)
			for j := range chunks {
				if chunks[j].ID == "" {
					chunks[j].ID = uuid.New().String()
				}
			}

			if opts.EmbeddingsEnabled {
				n, err := p.embedChunks(gctx, chunks)
				if err != nil {
					// Only context failures surface here; the provider
					// degrades per-chunk internally.
					slots[i].err = fmt.Errorf("document %s: embedding failed: %w", raw.ExternalID, err)
					return nil
				}
				mu.Lock()
				embedded += n
				mu.Unlock()
			}

			doc := domain.Document{
				ID:         docID,
				ExternalID: raw.ExternalID,
				Title:      raw.Title,
				DocType:    raw.DocType,
				IssueDate:  raw.IssueDate,
				Topics:     raw.Topics,
				ChunkCount: len(chunks),
			}
			for _, c := range chunks {
				if len(c.Embedding) > 0 && !c.EmbeddingFailed {
					doc.Embedding = c.Embedding
					break
				}
			}

			slots[i].item = &ingestItem{doc: doc, chunks: chunks}
			return nil
		})
	}
	// Workers never return errors; Wait only observes ctx cancellation,
	// which the flush loop handles.
	_ = g.Wait()

	items := make([]ingestItem, 0, len(batch))
	for i := range slots {
		switch {
		case slots[i].skipped:
			res.Skipped++
		case slots[i].err != nil:
			p.logger.Warn("document ingestion failed", zap.Error(slots[i].err))
			res.Errors = append(res.Errors, slots[i].err.Error())
		case slots[i].item != nil:
			items = append(items, *slots[i].item)
		}
	}
	res.EmbeddingsGenerated += embedded
	return items
}

// embedChunks fills chunk embeddings in place and returns how many
// succeeded. Chunks the provider could not embed keep an empty vector
// and are flagged EmbeddingFailed.
func (p *IngestionPipeline) embedChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if p.provider == nil || len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	batch, err := p.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	ok := 0
	for i := range chunks {
		if batch[i].Failed {
			chunks[i].EmbeddingFailed = true
			continue
		}
		vec := batch[i].Vector
		if p.reducer != nil {
			vec = p.reducer.Reduce(vec)
		}
		chunks[i].Embedding = vec
		ok++
	}
	return ok, nil
}

// flush persists buffered items one document at a time so a failing
// document does not poison the rest of the batch.
func (p *IngestionPipeline) flush(ctx context.Context, items []ingestItem, res *IngestionResult) {
	for i := range items {
		item := &items[i]

		if err := p.persist(ctx, item); err != nil {
			p.logger.Warn("document persist failed",
				zap.String("external_id", item.doc.ExternalID), zap.Error(err))
			res.Errors = append(res.Errors, fmt.Sprintf("document %s: store failure: %v", item.doc.ExternalID, err))
			continue
		}

		res.Processed++
		res.ChunksCreated += len(item.chunks)
	}
}

// persist stores one document with its chunks, atomically when a
// transaction runner is configured.
func (p *IngestionPipeline) persist(ctx context.Context, item *ingestItem) error {
	if p.tx != nil {
		return p.tx.WithTx(ctx, func(s TxStore) error {
			return persistItem(ctx, s, item)
		})
	}
	return persistItem(ctx, p.store, item)
}

func persistItem(ctx context.Context, s TxStore, item *ingestItem) error {
	id, err := s.UpsertDocument(ctx, &item.doc)
	if err != nil {
		return err
	}

	// The upsert may resolve to a pre-existing row id.
	for j := range item.chunks {
		item.chunks[j].DocumentID = id
	}

	if len(item.chunks) == 0 {
		return nil
	}
	return s.InsertChunks(ctx, item.chunks)
}
