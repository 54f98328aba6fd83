package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/domain"
)

// candidateMultiplier is the over-fetch factor applied to store lookups
// whose results are re-scored or fused in memory.
const candidateMultiplier = 2

// RetrievalConfig carries the tunables shared by the search strategies.
type RetrievalConfig struct {
	// SimilarityThreshold is the minimum vector score for hybrid and
	// context-expanded searches, which take no explicit threshold.
	SimilarityThreshold float64
	// SeedVectorWeight and SeedKeywordWeight blend the two signals when
	// ranking seeds for context expansion.
	SeedVectorWeight  float64
	SeedKeywordWeight float64
}

// RetrievalStore is the slice of the document store the engine needs.
type RetrievalStore interface {
	VectorSearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.SearchResult, error)
	KeywordSearch(ctx context.Context, terms []string, limit int) ([]domain.SearchResult, error)
	ChunkWindow(ctx context.Context, documentID string, lo, hi int) ([]domain.SearchResult, error)
}

// RetrievalEngine runs the four search strategies over the chunk store.
type RetrievalEngine struct {
	store  RetrievalStore
	cfg    RetrievalConfig
	logger *zap.Logger
}

// NewRetrievalEngine creates an engine. Non-positive weights fall back
// to the 0.6/0.4 vector/keyword defaults.
func NewRetrievalEngine(store RetrievalStore, cfg RetrievalConfig, logger *zap.Logger) *RetrievalEngine {
	if cfg.SeedVectorWeight <= 0 && cfg.SeedKeywordWeight <= 0 {
		cfg.SeedVectorWeight = 0.6
		cfg.SeedKeywordWeight = 0.4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalEngine{store: store, cfg: cfg, logger: logger}
}

// VectorSearch returns chunks whose similarity to queryVector exceeds
// threshold, best first. Scores are 1/(1+distance), always in (0, 1].
func (e *RetrievalEngine) VectorSearch(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	return e.store.VectorSearch(ctx, queryVector, threshold, limit)
}

// KeywordSearch tokenizes queryText and ranks chunks by lexical overlap
// between their stored keywords and the query terms. Each chunk keyword
// contributes 1.0 for an exact term match or 0.5 for a substring match
// in either direction; chunks scoring zero are dropped.
func (e *RetrievalEngine) KeywordSearch(ctx context.Context, queryText string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	terms := tokenizeQuery(queryText)
	if len(terms) == 0 {
		return nil, nil
	}

	// The store narrows to chunks with any overlap; exact scoring
	// happens here.
	candidates, err := e.store.KeywordSearch(ctx, terms, limit*2*candidateMultiplier)
	if err != nil {
		return nil, err
	}

	scored := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		score := matchScore(c.Keywords, terms)
		if score <= 0 {
			continue
		}
		c.Score = score
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// HybridSearch fuses keyword and vector results into a weighted union.
// A chunk found by both strategies scores the weighted sum of both
// signals; a chunk found by one scores that signal alone.
func (e *RetrievalEngine) HybridSearch(ctx context.Context, queryText string, queryVector []float32, keywordWeight, vectorWeight float64, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	kwResults, err := e.KeywordSearch(ctx, queryText, limit*candidateMultiplier)
	if err != nil {
		return nil, err
	}
	vecResults, err := e.store.VectorSearch(ctx, queryVector, e.cfg.SimilarityThreshold, limit*candidateMultiplier)
	if err != nil {
		return nil, err
	}

	merged := fuseResults(vecResults, kwResults, vectorWeight, keywordWeight)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// ContextExpandedSearch finds the best matchCount seed chunks by blended
// vector and keyword score, then returns each seed with its neighboring
// chunks from the same document, up to contextWindow ordinals each side.
// Groups come back in seed rank order, members in reading order; a chunk
// shared by overlapping windows appears once, in the higher-ranked group.
func (e *RetrievalEngine) ContextExpandedSearch(ctx context.Context, queryText string, queryVector []float32, matchCount, contextWindow int) ([]domain.ExpandedMatch, error) {
	if matchCount <= 0 {
		return nil, nil
	}
	if contextWindow < 0 {
		contextWindow = 0
	}

	seeds, err := e.HybridSearch(ctx, queryText, queryVector,
		e.cfg.SeedKeywordWeight, e.cfg.SeedVectorWeight, matchCount)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(seeds)*(2*contextWindow+1))
	expanded := make([]domain.ExpandedMatch, 0, len(seeds)*(2*contextWindow+1))
	for _, seed := range seeds {
		lo := seed.Ordinal - contextWindow
		if lo < 1 {
			lo = 1
		}
		hi := seed.Ordinal + contextWindow

		window, err := e.store.ChunkWindow(ctx, seed.DocumentID, lo, hi)
		if err != nil {
			return nil, err
		}

		for _, c := range window {
			if seen[c.ChunkID] {
				continue
			}
			seen[c.ChunkID] = true
			c.Score = seed.Score
			expanded = append(expanded, domain.ExpandedMatch{
				SearchResult:    c,
				IsOriginalMatch: c.ChunkID == seed.ChunkID,
				SeedChunkID:     seed.ChunkID,
				SeedOrdinal:     seed.Ordinal,
				PositionOffset:  c.Ordinal - seed.Ordinal,
			})
		}
	}
	return expanded, nil
}

// fuseResults merges two result sets keyed by chunk id.
func fuseResults(vecResults, kwResults []domain.SearchResult, vectorWeight, keywordWeight float64) []domain.SearchResult {
	type fused struct {
		result domain.SearchResult
		score  float64
		order  int
	}
	byID := make(map[string]*fused, len(vecResults)+len(kwResults))
	ordered := make([]*fused, 0, len(vecResults)+len(kwResults))

	add := func(r domain.SearchResult, weight float64) {
		if f, ok := byID[r.ChunkID]; ok {
			f.score += r.Score * weight
			return
		}
		f := &fused{result: r, score: r.Score * weight, order: len(ordered)}
		byID[r.ChunkID] = f
		ordered = append(ordered, f)
	}
	for _, r := range vecResults {
		add(r, vectorWeight)
	}
	for _, r := range kwResults {
		add(r, keywordWeight)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].order < ordered[j].order
	})

	out := make([]domain.SearchResult, 0, len(ordered))
	for _, f := range ordered {
		r := f.result
		r.Score = f.score
		out = append(out, r)
	}
	return out
}

// matchScore sums each chunk keyword's best match against the query
// terms: 1.0 exact, 0.5 substring either direction, else nothing.
func matchScore(keywords, terms []string) float64 {
	score := 0.0
	for _, kw := range keywords {
		best := 0.0
		for _, term := range terms {
			switch {
			case kw == term:
				best = 1.0
			case best < 0.5 && (strings.Contains(kw, term) || strings.Contains(term, kw)):
				best = 0.5
			}
			if best == 1.0 {
				break
			}
		}
		score += best
	}
	return score
}

// tokenizeQuery lowercases the query and keeps whitespace-separated
// terms longer than three characters.
func tokenizeQuery(queryText string) []string {
	fields := strings.Fields(strings.ToLower(queryText))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if len(f) > 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
