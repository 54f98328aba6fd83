package service

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/reglens/reglens/internal/domain"
)

// cacheKey identifies a cached query response. Two requests share an
// entry only when every retrieval-relevant parameter matches.
type cacheKey struct {
	Query         string
	Strategy      domain.SearchStrategy
	Limit         int
	Threshold     float64
	ContextWindow int
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%g|%d", k.Query, k.Strategy, k.Limit, k.Threshold, k.ContextWindow)
}

type cacheEntry struct {
	key      string
	response QueryResponse
}

// queryCache is a bounded FIFO cache of query responses. Hits do not
// refresh an entry's position; once maxSize is reached the oldest entry
// is evicted regardless of use.
type queryCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
	hits    uint64
	misses  uint64
}

func newQueryCache(maxSize int) *queryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &queryCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Get returns a copy of the cached response for k, if present.
func (c *queryCache) Get(k cacheKey) (QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[k.String()]
	if !ok {
		c.misses++
		return QueryResponse{}, false
	}
	c.hits++
	return el.Value.(*cacheEntry).response, true
}

// Put stores resp under k, evicting the oldest entry when full. An
// existing entry is overwritten in place without changing its age.
func (c *queryCache) Put(k cacheKey, resp QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := k.String()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).response = resp
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, response: resp})
}

// Stats reports hit and miss counts since creation.
func (c *queryCache) Stats() (hits, misses uint64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.order.Len()
}
