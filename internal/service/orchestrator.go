package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/domain"
)

// SearchEngine is the strategy surface the orchestrator dispatches to.
type SearchEngine interface {
	VectorSearch(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]domain.SearchResult, error)
	KeywordSearch(ctx context.Context, queryText string, limit int) ([]domain.SearchResult, error)
	HybridSearch(ctx context.Context, queryText string, queryVector []float32, keywordWeight, vectorWeight float64, limit int) ([]domain.SearchResult, error)
	ContextExpandedSearch(ctx context.Context, queryText string, queryVector []float32, matchCount, contextWindow int) ([]domain.ExpandedMatch, error)
}

// OrchestratorConfig carries the request defaults.
type OrchestratorConfig struct {
	DefaultStrategy     domain.SearchStrategy
	DefaultLimit        int
	SimilarityThreshold float64
	ContextWindow       int
	VectorWeight        float64
	KeywordWeight       float64
	CacheMaxSize        int
}

// QueryRequest is one search request, normalized by ProcessQuery.
type QueryRequest struct {
	Query       string
	Strategy    domain.SearchStrategy
	Limit       int
	BypassCache bool
}

// QueryResponse is a complete answer to a query. Expanded is populated
// only for the context strategy; Results always carries the flat view.
type QueryResponse struct {
	Results          []domain.SearchResult  `json:"results"`
	Expanded         []domain.ExpandedMatch `json:"expanded,omitempty"`
	FormattedContext string                 `json:"formatted_context"`
	Analysis         QueryAnalysis          `json:"analysis"`
	Metrics          QueryMetrics           `json:"metrics"`
	StrategyUsed     domain.SearchStrategy  `json:"strategy_used"`
	CacheHit         bool                   `json:"cache_hit"`
}

// QueryOrchestrator runs the full query lifecycle: analysis, query
// embedding, retrieval dispatch, context formatting, caching, and
// rolling metrics.
type QueryOrchestrator struct {
	engine   SearchEngine
	provider EmbeddingProvider
	reducer  Reducer
	cache    *queryCache
	metrics  *MetricsRecorder
	cfg      OrchestratorConfig
	logger   *zap.Logger
}

// NewQueryOrchestrator creates an orchestrator. provider may be nil
// when embeddings are disabled; vector-dependent strategies then fail
// with a configuration error.
func NewQueryOrchestrator(
	engine SearchEngine,
	provider EmbeddingProvider,
	reducer Reducer,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *QueryOrchestrator {
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = domain.StrategyHybrid
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 2
	}
	if cfg.VectorWeight <= 0 && cfg.KeywordWeight <= 0 {
		cfg.VectorWeight = 0.6
		cfg.KeywordWeight = 0.4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryOrchestrator{
		engine:   engine,
		provider: provider,
		reducer:  reducer,
		cache:    newQueryCache(cfg.CacheMaxSize),
		metrics:  NewMetricsRecorder(),
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessQuery runs a query end to end. Identical requests are served
// from the cache unless the request opts out.
func (o *QueryOrchestrator) ProcessQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query must not be empty")
	}
	if req.Strategy == "" {
		req.Strategy = o.cfg.DefaultStrategy
	}
	if !domain.IsValidStrategy(req.Strategy) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("unknown search strategy %q", req.Strategy), domain.ErrInvalidStrategy)
	}
	if req.Limit <= 0 {
		req.Limit = o.cfg.DefaultLimit
	}

	key := cacheKey{
		Query:         req.Query,
		Strategy:      req.Strategy,
		Limit:         req.Limit,
		Threshold:     o.cfg.SimilarityThreshold,
		ContextWindow: o.cfg.ContextWindow,
	}
	if !req.BypassCache {
		if resp, ok := o.cache.Get(key); ok {
			resp.CacheHit = true
			return &resp, nil
		}
	}

	total := time.Now()
	resp := &QueryResponse{StrategyUsed: req.Strategy}

	phase := time.Now()
	resp.Analysis = AnalyzeQuery(req.Query)
	analysisDur := time.Since(phase)
	o.metrics.RecordPhase(PhaseAnalysis, analysisDur)

	var queryVector []float32
	var embeddingDur time.Duration
	if strategyNeedsVector(req.Strategy) {
		if o.provider == nil {
			return nil, domain.NewDomainError(domain.ErrCodeConfiguration,
				"embedding provider is not configured; only keyword search is available")
		}
		phase = time.Now()
		vec, err := o.provider.Embed(ctx, req.Query)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider,
				"failed to embed query", err)
		}
		if o.reducer != nil {
			vec = o.reducer.Reduce(vec)
		}
		queryVector = vec
		embeddingDur = time.Since(phase)
		o.metrics.RecordPhase(PhaseEmbedding, embeddingDur)
	}

	phase = time.Now()
	var err error
	switch req.Strategy {
	case domain.StrategyVector:
		resp.Results, err = o.engine.VectorSearch(ctx, queryVector, o.cfg.SimilarityThreshold, req.Limit)
	case domain.StrategyKeyword:
		resp.Results, err = o.engine.KeywordSearch(ctx, req.Query, req.Limit)
	case domain.StrategyHybrid:
		resp.Results, err = o.engine.HybridSearch(ctx, req.Query, queryVector,
			o.cfg.KeywordWeight, o.cfg.VectorWeight, req.Limit)
	case domain.StrategyContextExpanded:
		resp.Expanded, err = o.engine.ContextExpandedSearch(ctx, req.Query, queryVector,
			req.Limit, o.cfg.ContextWindow)
		if err == nil {
			resp.Results = flattenExpanded(resp.Expanded)
		}
	}
	if err != nil {
		return nil, err
	}
	retrievalDur := time.Since(phase)
	o.metrics.RecordPhase(PhaseRetrieval, retrievalDur)

	phase = time.Now()
	if len(resp.Expanded) > 0 {
		resp.FormattedContext = formatExpandedContext(resp.Expanded)
	} else {
		resp.FormattedContext = formatContext(resp.Results)
	}
	formattingDur := time.Since(phase)
	o.metrics.RecordPhase(PhaseFormatting, formattingDur)

	avgSim, docCount := resultStats(resp.Results)
	o.metrics.RecordQuery(avgSim, docCount)

	resp.Metrics = QueryMetrics{
		AnalysisMS:    durationMS(analysisDur),
		EmbeddingMS:   durationMS(embeddingDur),
		RetrievalMS:   durationMS(retrievalDur),
		FormattingMS:  durationMS(formattingDur),
		TotalMS:       durationMS(time.Since(total)),
		ResultCount:   len(resp.Results),
		DocumentCount: docCount,
		AvgSimilarity: avgSim,
	}

	o.cache.Put(key, *resp)

	o.logger.Debug("query processed",
		zap.String("strategy", string(req.Strategy)),
		zap.String("intent", string(resp.Analysis.Intent)),
		zap.Int("results", len(resp.Results)),
		zap.Float64("total_ms", resp.Metrics.TotalMS),
	)
	return resp, nil
}

// AggregateMetrics exposes the rolling metrics windows.
func (o *QueryOrchestrator) AggregateMetrics() AggregateMetrics {
	return o.metrics.Snapshot()
}

// CacheStats exposes the cache counters.
func (o *QueryOrchestrator) CacheStats() (hits, misses uint64, size int) {
	return o.cache.Stats()
}

func strategyNeedsVector(s domain.SearchStrategy) bool {
	return s == domain.StrategyVector || s == domain.StrategyHybrid || s == domain.StrategyContextExpanded
}

func flattenExpanded(matches []domain.ExpandedMatch) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.SearchResult)
	}
	return out
}

func resultStats(results []domain.SearchResult) (avgSimilarity float64, documentCount int) {
	if len(results) == 0 {
		return 0, 0
	}
	docs := make(map[string]bool, len(results))
	sum := 0.0
	for _, r := range results {
		sum += r.Score
		docs[r.DocumentID] = true
	}
	return sum / float64(len(results)), len(docs)
}

// formatContext renders flat results as numbered sections.
func formatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] document=%s chunk=%d score=%.4f\n%s",
			i+1, r.DocumentID, r.Ordinal, r.Score, r.Content)
	}
	return b.String()
}

// formatExpandedContext renders expansion groups. Each seed opens a
// section; surrounding chunks are labeled by their offset from it.
func formatExpandedContext(matches []domain.ExpandedMatch) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	section := 0
	for i, m := range matches {
		if i == 0 || m.SeedChunkID != matches[i-1].SeedChunkID {
			section++
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%d] document=%s seed_chunk=%d score=%.4f", section, m.DocumentID, m.SeedOrdinal, m.Score)
		}
		label := "match"
		if !m.IsOriginalMatch {
			label = fmt.Sprintf("context %+d", m.PositionOffset)
		}
		fmt.Fprintf(&b, "\n(%s) %s", label, m.Content)
	}
	return b.String()
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
