//go:build e2e

package e2e

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_HealthAndAuth(t *testing.T) {
	env := SetupEnv(t)
	defer env.Cleanup()

	t.Run("health is public", func(t *testing.T) {
		resp, err := env.Get("/health", "")
		require.NoError(t, err)

		var health struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("search requires the service key", func(t *testing.T) {
		_, err := env.Post("/search", map[string]any{"query": "capital"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		_, err := env.Post("/search", map[string]any{"query": "capital"}, "not-the-key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestE2E_IngestAndSearch(t *testing.T) {
	env := SetupEnv(t)
	defer env.Cleanup()
	env.Ingest()

	type searchResult struct {
		ChunkID    string  `json:"chunk_id"`
		DocumentID string  `json:"document_id"`
		Ordinal    int     `json:"ordinal"`
		Content    string  `json:"content"`
		Score      float64 `json:"score"`
	}
	type searchResponse struct {
		Results          []searchResult `json:"results"`
		FormattedContext string         `json:"formatted_context"`
		StrategyUsed     string         `json:"strategy_used"`
		CacheHit         bool           `json:"cache_hit"`
		Analysis         struct {
			Intent     string `json:"intent"`
			Complexity string `json:"complexity"`
		} `json:"analysis"`
	}

	t.Run("keyword search finds ingested content", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]any{
			"query":    "capital buffer",
			"strategy": "keyword",
		}, testAPIKey)
		require.NoError(t, err)

		var sr searchResponse
		require.NoError(t, json.Unmarshal(resp.Data, &sr))
		require.NotEmpty(t, sr.Results)
		assert.Equal(t, "keyword", sr.StrategyUsed)
		assert.False(t, sr.CacheHit)
		assert.Contains(t, sr.FormattedContext, sr.Results[0].Content)
		for _, r := range sr.Results {
			assert.Contains(t, r.Content, "buffer")
		}
	})

	t.Run("repeat query is served from cache", func(t *testing.T) {
		body := map[string]any{"query": "liquidity reporting deadline", "strategy": "keyword"}

		first, err := env.Post("/search", body, testAPIKey)
		require.NoError(t, err)
		var cold searchResponse
		require.NoError(t, json.Unmarshal(first.Data, &cold))
		assert.False(t, cold.CacheHit)

		second, err := env.Post("/search", body, testAPIKey)
		require.NoError(t, err)
		var warm searchResponse
		require.NoError(t, json.Unmarshal(second.Data, &warm))
		assert.True(t, warm.CacheHit)
		assert.Equal(t, cold.Results, warm.Results)
	})

	t.Run("vector search without a provider is a config error", func(t *testing.T) {
		_, err := env.Post("/search", map[string]any{
			"query":    "capital buffer",
			"strategy": "vector",
		}, testAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("invalid strategy is rejected", func(t *testing.T) {
		_, err := env.Post("/search", map[string]any{
			"query":    "capital",
			"strategy": "telepathy",
		}, testAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("metrics reflect completed queries", func(t *testing.T) {
		resp, err := env.Get("/metrics", testAPIKey)
		require.NoError(t, err)

		var metrics struct {
			Search struct {
				Queries uint64 `json:"queries"`
			} `json:"search"`
			Cache struct {
				Hits   uint64 `json:"hits"`
				Misses uint64 `json:"misses"`
			} `json:"cache"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &metrics))
		assert.Greater(t, metrics.Search.Queries, uint64(0))
		assert.Greater(t, metrics.Cache.Hits, uint64(0))
	})
}

func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupEnv(t)
	defer env.Cleanup()
	env.Ingest()

	var docID string

	t.Run("ingested document is retrievable", func(t *testing.T) {
		doc, err := env.Store.GetDocumentByExternalID(env.Ctx, "eba-gl-2024-01")
		require.NoError(t, err)
		require.NotNil(t, doc)
		docID = doc.ID

		resp, err := env.Get("/documents/"+docID, testAPIKey)
		require.NoError(t, err)

		var got struct {
			ID         string `json:"id"`
			ExternalID string `json:"external_id"`
			Title      string `json:"title"`
			ChunkCount int    `json:"chunk_count"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, docID, got.ID)
		assert.Equal(t, "eba-gl-2024-01", got.ExternalID)
		assert.Equal(t, "Guidelines on Capital Buffers", got.Title)
		assert.Equal(t, 3, got.ChunkCount)
	})

	t.Run("unknown document returns 404", func(t *testing.T) {
		_, err := env.Get("/documents/00000000-0000-0000-0000-000000000000", testAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("delete removes document and chunks", func(t *testing.T) {
		require.NotEmpty(t, docID)

		_, err := env.Delete("/documents/"+docID, testAPIKey)
		require.NoError(t, err)

		_, err = env.Get("/documents/"+docID, testAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")

		var remaining int
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			`SELECT count(*) FROM chunks WHERE document_id = $1`, docID).Scan(&remaining))
		assert.Equal(t, 0, remaining)
	})

	t.Run("reingest restores the document", func(t *testing.T) {
		env.Ingest()

		doc, err := env.Store.GetDocumentByExternalID(env.Ctx, "eba-gl-2024-01")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, 3, doc.ChunkCount)
	})
}
