package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/service"
)

type MockQueryProcessor struct {
	mock.Mock
}

func (m *MockQueryProcessor) ProcessQuery(ctx context.Context, req service.QueryRequest) (*service.QueryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResponse), args.Error(1)
}

func (m *MockQueryProcessor) AggregateMetrics() service.AggregateMetrics {
	args := m.Called()
	return args.Get(0).(service.AggregateMetrics)
}

func (m *MockQueryProcessor) CacheStats() (uint64, uint64, int) {
	args := m.Called()
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Int(2)
}

func postSearch(t *testing.T, h *SearchHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestSearchHandler_Search(t *testing.T) {
	processor := new(MockQueryProcessor)
	processor.On("ProcessQuery", mock.Anything, service.QueryRequest{
		Query:    "basel capital",
		Strategy: domain.StrategyHybrid,
		Limit:    5,
	}).Return(&service.QueryResponse{
		Results:      []domain.SearchResult{{ChunkID: "c1", DocumentID: "d1", Score: 0.9}},
		StrategyUsed: domain.StrategyHybrid,
	}, nil)

	h := NewSearchHandler(processor)
	rec := postSearch(t, h, SearchRequest{Query: "basel capital", Strategy: "hybrid", Limit: 5})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chunk_id":"c1"`)
	processor.AssertExpectations(t)
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	h := NewSearchHandler(new(MockQueryProcessor))

	rec := postSearch(t, h, SearchRequest{Strategy: "hybrid"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_UnknownStrategy(t *testing.T) {
	h := NewSearchHandler(new(MockQueryProcessor))

	rec := postSearch(t, h, SearchRequest{Query: "basel", Strategy: "fuzzy"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_MalformedBody(t *testing.T) {
	h := NewSearchHandler(new(MockQueryProcessor))

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_ProviderFailure(t *testing.T) {
	processor := new(MockQueryProcessor)
	processor.On("ProcessQuery", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeProvider, "embedding provider unavailable"))

	h := NewSearchHandler(processor)
	rec := postSearch(t, h, SearchRequest{Query: "basel capital"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchHandler_Metrics(t *testing.T) {
	processor := new(MockQueryProcessor)
	processor.On("AggregateMetrics").Return(service.AggregateMetrics{Queries: 3})
	processor.On("CacheStats").Return(uint64(2), uint64(1), 1)

	h := NewSearchHandler(processor)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queries":3`)
	assert.Contains(t, rec.Body.String(), `"hits":2`)
}
