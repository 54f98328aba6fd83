// Package embedding provides embedding generation and deterministic
// dimension reduction for the chunk store.
package embedding

import "context"

// BatchEmbedding is one entry of an EmbedBatch result. When the provider
// failed for this item, Vector is a zero vector of the native dimension and
// Failed is set so callers can avoid persisting a degraded embedding.
type BatchEmbedding struct {
	Vector []float32
	Failed bool
}

// Provider generates embeddings for text.
type Provider interface {
	// Embed returns an embedding of the provider's native dimension.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns exactly one entry per input. Individual failures
	// are substituted with a flagged zero-vector placeholder instead of
	// aborting the batch.
	EmbedBatch(ctx context.Context, texts []string) ([]BatchEmbedding, error)

	// Dimensions reports the provider's native embedding dimension.
	Dimensions() int
}
