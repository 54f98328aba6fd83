package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings
	DefaultModel = openai.SmallEmbedding3
	// DefaultDimensions is the native dimension of text-embedding-3-small
	DefaultDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI defines the provider call surface, kept narrow for testing.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIAdapter adapts the go-openai client to EmbeddingAPI.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI embeddings API for a batch of inputs.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Client is the EmbeddingProvider backed by OpenAI.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	logger     *zap.Logger
}

// Config holds client construction options.
type Config struct {
	APIKey     string
	Model      openai.EmbeddingModel
	Dimensions int
}

// NewClient creates an OpenAI-backed embedding client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.Model),
		dimensions: dimensions,
		logger:     logger,
	}
}

// NewClientWithAPI creates a client over an explicit API implementation.
func NewClientWithAPI(api EmbeddingAPI, dimensions int, logger *zap.Logger) *Client {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, dimensions: dimensions, logger: logger}
}

// Dimensions reports the native embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed generates an embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.api.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	if len(vectors[0]) != c.dimensions {
		return nil, ErrWrongDimensions
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, returning one entry per input.
// A whole-batch failure degrades to per-item calls; items that still fail
// (or come back with the wrong dimension) get a flagged zero-vector so the
// batch stays length-preserving.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]BatchEmbedding, error) {
	if len(texts) == 0 {
		return []BatchEmbedding{}, nil
	}

	results := make([]BatchEmbedding, len(texts))

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		for i, v := range vectors {
			if len(v) != c.dimensions {
				c.logger.Warn("batch embedding has wrong dimensions, substituting placeholder",
					zap.Int("index", i), zap.Int("got", len(v)), zap.Int("want", c.dimensions))
				results[i] = c.placeholder()
				continue
			}
			results[i] = BatchEmbedding{Vector: v}
		}
		return results, nil
	}

	if err != nil {
		c.logger.Warn("batch embedding call failed, retrying per item", zap.Error(err))
	}

	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		vec, itemErr := c.Embed(ctx, text)
		if itemErr != nil {
			c.logger.Warn("embedding failed for batch item, substituting placeholder",
				zap.Int("index", i), zap.Error(itemErr))
			results[i] = c.placeholder()
			continue
		}
		results[i] = BatchEmbedding{Vector: vec}
	}
	return results, nil
}

func (c *Client) placeholder() BatchEmbedding {
	return BatchEmbedding{Vector: make([]float32, c.dimensions), Failed: true}
}
