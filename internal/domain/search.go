package domain

// SearchStrategy selects how a query is executed by the retrieval engine.
type SearchStrategy string

const (
	StrategyVector          SearchStrategy = "vector"
	StrategyKeyword         SearchStrategy = "keyword"
	StrategyHybrid          SearchStrategy = "hybrid"
	StrategyContextExpanded SearchStrategy = "context"
)

// IsValidStrategy reports whether s names a known search strategy.
func IsValidStrategy(s SearchStrategy) bool {
	switch s {
	case StrategyVector, StrategyKeyword, StrategyHybrid, StrategyContextExpanded:
		return true
	}
	return false
}

// SearchResult is a transient scored chunk match. Scores from the store
// lie in (0, 1]; keyword match scores are raw sums of term contributions.
type SearchResult struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Ordinal    int      `json:"ordinal"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords,omitempty"`
	Score      float64  `json:"score"`
}

// ExpandedMatch is a chunk returned by context expansion, tagged with its
// position relative to the seed match it surrounds.
type ExpandedMatch struct {
	SearchResult
	IsOriginalMatch bool   `json:"is_original_match"`
	SeedChunkID     string `json:"seed_chunk_id"`
	SeedOrdinal     int    `json:"seed_ordinal"`
	PositionOffset  int    `json:"position_offset"`
}
