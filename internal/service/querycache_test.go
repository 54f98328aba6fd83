package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglens/reglens/internal/domain"
)

func keyFor(query string) cacheKey {
	return cacheKey{Query: query, Strategy: domain.StrategyHybrid, Limit: 10, Threshold: 0.3, ContextWindow: 2}
}

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := newQueryCache(10)

	_, ok := c.Get(keyFor("q1"))
	assert.False(t, ok)

	c.Put(keyFor("q1"), QueryResponse{FormattedContext: "ctx-1"})

	resp, ok := c.Get(keyFor("q1"))
	require.True(t, ok)
	assert.Equal(t, "ctx-1", resp.FormattedContext)

	hits, misses, size := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)
}

func TestQueryCache_KeyIncludesAllParameters(t *testing.T) {
	c := newQueryCache(10)
	base := keyFor("q")
	c.Put(base, QueryResponse{FormattedContext: "base"})

	variants := []cacheKey{
		{Query: "q", Strategy: domain.StrategyVector, Limit: 10, Threshold: 0.3, ContextWindow: 2},
		{Query: "q", Strategy: domain.StrategyHybrid, Limit: 5, Threshold: 0.3, ContextWindow: 2},
		{Query: "q", Strategy: domain.StrategyHybrid, Limit: 10, Threshold: 0.5, ContextWindow: 2},
		{Query: "q", Strategy: domain.StrategyHybrid, Limit: 10, Threshold: 0.3, ContextWindow: 3},
	}
	for _, k := range variants {
		_, ok := c.Get(k)
		assert.False(t, ok, "key %v should not hit", k)
	}
}

func TestQueryCache_FIFOEviction(t *testing.T) {
	c := newQueryCache(3)
	for i := 0; i < 3; i++ {
		c.Put(keyFor(fmt.Sprintf("q%d", i)), QueryResponse{})
	}

	// A hit must not refresh q0's position.
	_, ok := c.Get(keyFor("q0"))
	require.True(t, ok)

	c.Put(keyFor("q3"), QueryResponse{})

	_, ok = c.Get(keyFor("q0"))
	assert.False(t, ok, "oldest entry evicted regardless of recent hit")
	for i := 1; i <= 3; i++ {
		_, ok := c.Get(keyFor(fmt.Sprintf("q%d", i)))
		assert.True(t, ok)
	}
}

func TestQueryCache_OverwriteKeepsAge(t *testing.T) {
	c := newQueryCache(2)
	c.Put(keyFor("q0"), QueryResponse{FormattedContext: "old"})
	c.Put(keyFor("q1"), QueryResponse{})

	c.Put(keyFor("q0"), QueryResponse{FormattedContext: "new"})
	resp, ok := c.Get(keyFor("q0"))
	require.True(t, ok)
	assert.Equal(t, "new", resp.FormattedContext)

	// q0 is still the oldest entry.
	c.Put(keyFor("q2"), QueryResponse{})
	_, ok = c.Get(keyFor("q0"))
	assert.False(t, ok)
}
