package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Service API key for the HTTP surface; empty disables auth (dev only).
	APIKey string `envconfig:"API_KEY"`

	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	NativeDimensions  int    `envconfig:"NATIVE_DIMENSIONS" default:"1536"`
	StoreDimensions   int    `envconfig:"STORE_DIMENSIONS" default:"1536"`
	EmbeddingsEnabled bool   `envconfig:"EMBEDDINGS_ENABLED" default:"true"`

	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`
	HybridVectorWeight  float64 `envconfig:"HYBRID_VECTOR_WEIGHT" default:"0.6"`
	HybridKeywordWeight float64 `envconfig:"HYBRID_KEYWORD_WEIGHT" default:"0.4"`
	ContextWindow       int     `envconfig:"CONTEXT_WINDOW" default:"2"`
	DefaultStrategy     string  `envconfig:"DEFAULT_STRATEGY" default:"hybrid"`
	CacheMaxSize        int     `envconfig:"CACHE_MAX_SIZE" default:"100"`

	ProcessingBatchSize int `envconfig:"PROCESSING_BATCH_SIZE" default:"8"`
	StorageBatchSize    int `envconfig:"STORAGE_BATCH_SIZE" default:"32"`
	MaxConcurrency      int `envconfig:"MAX_CONCURRENCY" default:"4"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"reglens-corpus"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"documents/"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("REGLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate fails fast on configuration that would corrupt the index or
// break at the first call.
func (c *Config) Validate() error {
	if c.StoreDimensions <= 0 || c.NativeDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive (native=%d store=%d)",
			c.NativeDimensions, c.StoreDimensions)
	}
	if c.StoreDimensions > c.NativeDimensions {
		return fmt.Errorf("store dimension %d exceeds native embedding dimension %d",
			c.StoreDimensions, c.NativeDimensions)
	}
	if c.EmbeddingsEnabled && c.OpenAIAPIKey == "" {
		return fmt.Errorf("embeddings are enabled but REGLENS_OPENAI_API_KEY is not set")
	}
	if c.HybridVectorWeight < 0 || c.HybridKeywordWeight < 0 {
		return fmt.Errorf("hybrid weights must be non-negative")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must lie in [0,1], got %f", c.SimilarityThreshold)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
