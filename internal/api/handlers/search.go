package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/reglens/reglens/internal/api"
	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/service"
)

// QueryProcessor runs a search query end to end.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req service.QueryRequest) (*service.QueryResponse, error)
	AggregateMetrics() service.AggregateMetrics
	CacheStats() (hits, misses uint64, size int)
}

type SearchHandler struct {
	processor QueryProcessor
	validate  *validator.Validate
}

func NewSearchHandler(processor QueryProcessor) *SearchHandler {
	return &SearchHandler{
		processor: processor,
		validate:  validator.New(),
	}
}

type SearchRequest struct {
	Query       string `json:"query" validate:"required"`
	Strategy    string `json:"strategy" validate:"omitempty,oneof=vector keyword hybrid context"`
	Limit       int    `json:"limit" validate:"omitempty,min=1,max=100"`
	BypassCache bool   `json:"bypass_cache"`
}

// Search handles POST /search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.processor.ProcessQuery(r.Context(), service.QueryRequest{
		Query:       req.Query,
		Strategy:    domain.SearchStrategy(req.Strategy),
		Limit:       req.Limit,
		BypassCache: req.BypassCache,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resp)
}

type metricsResponse struct {
	Search service.AggregateMetrics `json:"search"`
	Cache  cacheStatsResponse       `json:"cache"`
}

type cacheStatsResponse struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// Metrics handles GET /metrics.
func (h *SearchHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	hits, misses, size := h.processor.CacheStats()
	api.Success(w, http.StatusOK, metricsResponse{
		Search: h.processor.AggregateMetrics(),
		Cache:  cacheStatsResponse{Hits: hits, Misses: misses, Size: size},
	})
}
