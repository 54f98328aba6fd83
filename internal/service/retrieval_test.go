package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reglens/reglens/internal/domain"
)

type MockRetrievalStore struct {
	mock.Mock
}

func (m *MockRetrievalStore) VectorSearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, vec, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockRetrievalStore) KeywordSearch(ctx context.Context, terms []string, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, terms, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockRetrievalStore) ChunkWindow(ctx context.Context, documentID string, lo, hi int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, documentID, lo, hi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func newTestEngine(store RetrievalStore) *RetrievalEngine {
	return NewRetrievalEngine(store, RetrievalConfig{
		SimilarityThreshold: 0.3,
		SeedVectorWeight:    0.6,
		SeedKeywordWeight:   0.4,
	}, nil)
}

func TestKeywordSearch_Scoring(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("KeywordSearch", mock.Anything, []string{"capital", "requirements"}, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "exact", Keywords: []string{"capital", "liquidity"}},
			{ChunkID: "substr", Keywords: []string{"requirement"}},
			{ChunkID: "both", Keywords: []string{"capital", "requirements"}},
			{ChunkID: "none", Keywords: []string{"liquidity"}},
		}, nil)

	engine := newTestEngine(store)
	results, err := engine.KeywordSearch(context.Background(), "Capital requirements", 10)

	require.NoError(t, err)
	require.Len(t, results, 3)
	// "requirement" is a substring of the term "requirements": 0.5.
	assert.Equal(t, "both", results[0].ChunkID)
	assert.InDelta(t, 2.0, results[0].Score, 1e-9)
	assert.Equal(t, "exact", results[1].ChunkID)
	assert.InDelta(t, 1.0, results[1].Score, 1e-9)
	assert.Equal(t, "substr", results[2].ChunkID)
	assert.InDelta(t, 0.5, results[2].Score, 1e-9)
}

func TestKeywordSearch_ShortTermsDropped(t *testing.T) {
	store := new(MockRetrievalStore)
	engine := newTestEngine(store)

	// Every token is three characters or fewer, so the store is never hit.
	results, err := engine.KeywordSearch(context.Background(), "is it ok", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
	store.AssertNotCalled(t, "KeywordSearch", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeywordSearch_TruncatesToLimit(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "a", Keywords: []string{"basel"}},
			{ChunkID: "b", Keywords: []string{"basel"}},
			{ChunkID: "c", Keywords: []string{"basel"}},
		}, nil)

	engine := newTestEngine(store)
	results, err := engine.KeywordSearch(context.Background(), "basel accord", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Equal scores keep candidate order.
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "b", results[1].ChunkID)
}

func TestVectorSearch_Delegates(t *testing.T) {
	store := new(MockRetrievalStore)
	vec := []float32{0.1, 0.2}
	store.On("VectorSearch", mock.Anything, vec, 0.5, 3).
		Return([]domain.SearchResult{{ChunkID: "v1", Score: 0.9}}, nil)

	engine := newTestEngine(store)
	results, err := engine.VectorSearch(context.Background(), vec, 0.5, 3)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ChunkID)
}

func TestHybridSearch_WeightedUnion(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("VectorSearch", mock.Anything, mock.Anything, 0.3, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "shared", DocumentID: "d1", Score: 0.8},
			{ChunkID: "vec-only", DocumentID: "d1", Score: 0.9},
		}, nil)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "shared", DocumentID: "d1", Keywords: []string{"basel"}},
			{ChunkID: "kw-only", DocumentID: "d2", Keywords: []string{"basel"}},
		}, nil)

	engine := newTestEngine(store)
	results, err := engine.HybridSearch(context.Background(), "basel framework", []float32{0.1}, 0.4, 0.6, 10)

	require.NoError(t, err)
	require.Len(t, results, 3)

	// shared: 0.8*0.6 (vector) + 1.0*0.4 (keyword exact) = 0.88
	assert.Equal(t, "shared", results[0].ChunkID)
	assert.InDelta(t, 0.88, results[0].Score, 1e-9)
	// vec-only: 0.9*0.6 = 0.54
	assert.Equal(t, "vec-only", results[1].ChunkID)
	assert.InDelta(t, 0.54, results[1].Score, 1e-9)
	// kw-only: 1.0*0.4 = 0.40
	assert.Equal(t, "kw-only", results[2].ChunkID)
	assert.InDelta(t, 0.40, results[2].Score, 1e-9)
}

func TestHybridSearch_VectorStoreErrorPropagates(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)
	store.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	engine := newTestEngine(store)
	_, err := engine.HybridSearch(context.Background(), "basel framework", []float32{0.1}, 0.4, 0.6, 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestContextExpandedSearch_GroupsAndOffsets(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "seed-1", DocumentID: "doc-a", Ordinal: 5, Score: 0.9},
		}, nil)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)
	store.On("ChunkWindow", mock.Anything, "doc-a", 4, 6).
		Return([]domain.SearchResult{
			{ChunkID: "c4", DocumentID: "doc-a", Ordinal: 4},
			{ChunkID: "seed-1", DocumentID: "doc-a", Ordinal: 5},
			{ChunkID: "c6", DocumentID: "doc-a", Ordinal: 6},
		}, nil)

	engine := newTestEngine(store)
	matches, err := engine.ContextExpandedSearch(context.Background(), "basel capital", []float32{0.1}, 1, 1)

	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, []int{-1, 0, 1}, []int{matches[0].PositionOffset, matches[1].PositionOffset, matches[2].PositionOffset})
	assert.False(t, matches[0].IsOriginalMatch)
	assert.True(t, matches[1].IsOriginalMatch)
	assert.False(t, matches[2].IsOriginalMatch)
	for _, m := range matches {
		assert.Equal(t, "seed-1", m.SeedChunkID)
		assert.Equal(t, 5, m.SeedOrdinal)
		assert.InDelta(t, 0.9*0.6, m.Score, 1e-9)
	}
}

func TestContextExpandedSearch_WindowClippedAtOne(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "seed-1", DocumentID: "doc-a", Ordinal: 1, Score: 0.9},
		}, nil)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)
	store.On("ChunkWindow", mock.Anything, "doc-a", 1, 3).
		Return([]domain.SearchResult{
			{ChunkID: "seed-1", DocumentID: "doc-a", Ordinal: 1},
			{ChunkID: "c2", DocumentID: "doc-a", Ordinal: 2},
		}, nil)

	engine := newTestEngine(store)
	matches, err := engine.ContextExpandedSearch(context.Background(), "basel capital", []float32{0.1}, 1, 2)

	require.NoError(t, err)
	require.Len(t, matches, 2)
	store.AssertCalled(t, "ChunkWindow", mock.Anything, "doc-a", 1, 3)
}

func TestContextExpandedSearch_OverlappingWindowsDeduped(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{
			{ChunkID: "seed-a", DocumentID: "doc-a", Ordinal: 3, Score: 0.9},
			{ChunkID: "seed-b", DocumentID: "doc-a", Ordinal: 4, Score: 0.8},
		}, nil)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)
	store.On("ChunkWindow", mock.Anything, "doc-a", 2, 4).
		Return([]domain.SearchResult{
			{ChunkID: "c2", DocumentID: "doc-a", Ordinal: 2},
			{ChunkID: "seed-a", DocumentID: "doc-a", Ordinal: 3},
			{ChunkID: "seed-b", DocumentID: "doc-a", Ordinal: 4},
		}, nil)
	store.On("ChunkWindow", mock.Anything, "doc-a", 3, 5).
		Return([]domain.SearchResult{
			{ChunkID: "seed-a", DocumentID: "doc-a", Ordinal: 3},
			{ChunkID: "seed-b", DocumentID: "doc-a", Ordinal: 4},
			{ChunkID: "c5", DocumentID: "doc-a", Ordinal: 5},
		}, nil)

	engine := newTestEngine(store)
	matches, err := engine.ContextExpandedSearch(context.Background(), "basel capital", []float32{0.1}, 2, 1)

	require.NoError(t, err)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ChunkID)
	}
	// Chunks shared by both windows stay in the higher-ranked group.
	assert.Equal(t, []string{"c2", "seed-a", "seed-b", "c5"}, ids)
}

func TestContextExpandedSearch_EmptyCorpus(t *testing.T) {
	store := new(MockRetrievalStore)
	store.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)
	store.On("KeywordSearch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)

	engine := newTestEngine(store)
	matches, err := engine.ContextExpandedSearch(context.Background(), "basel capital", []float32{0.1}, 5, 2)

	require.NoError(t, err)
	assert.Empty(t, matches)
}
