package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REGLENS_DATABASE_URL", "postgres://localhost/reglens")
	t.Setenv("REGLENS_OPENAI_API_KEY", "sk-test")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1536, cfg.NativeDimensions)
	assert.Equal(t, 1536, cfg.StoreDimensions)
	assert.Equal(t, 0.3, cfg.SimilarityThreshold)
	assert.Equal(t, 0.6, cfg.HybridVectorWeight)
	assert.Equal(t, 0.4, cfg.HybridKeywordWeight)
	assert.Equal(t, 2, cfg.ContextWindow)
	assert.Equal(t, "hybrid", cfg.DefaultStrategy)
	assert.Equal(t, 100, cfg.CacheMaxSize)
	assert.Equal(t, 8, cfg.ProcessingBatchSize)
	assert.Equal(t, 32, cfg.StorageBatchSize)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	// t.Setenv registers restoration; the unset makes the var truly absent.
	t.Setenv("REGLENS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("REGLENS_DATABASE_URL")
	os.Unsetenv("DATABASE_URL")

	_, err := Load()

	assert.Error(t, err)
}

func TestValidate_StoreDimensionTooLarge(t *testing.T) {
	cfg := &Config{
		NativeDimensions:    384,
		StoreDimensions:     1536,
		SimilarityThreshold: 0.3,
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds native")
}

func TestValidate_EmbeddingsWithoutKey(t *testing.T) {
	cfg := &Config{
		NativeDimensions:    1536,
		StoreDimensions:     1536,
		EmbeddingsEnabled:   true,
		SimilarityThreshold: 0.3,
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidate_ThresholdBounds(t *testing.T) {
	cfg := &Config{
		NativeDimensions:    1536,
		StoreDimensions:     384,
		SimilarityThreshold: 1.5,
	}

	assert.Error(t, cfg.Validate())
}
