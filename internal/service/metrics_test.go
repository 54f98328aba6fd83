package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecorder_PhaseStats(t *testing.T) {
	m := NewMetricsRecorder()
	m.RecordPhase(PhaseRetrieval, 10*time.Millisecond)
	m.RecordPhase(PhaseRetrieval, 20*time.Millisecond)
	m.RecordPhase(PhaseRetrieval, 30*time.Millisecond)

	snap := m.Snapshot()
	stats, ok := snap.Phases[PhaseRetrieval]
	require.True(t, ok)
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 20.0, stats.Avg, 0.01)
	assert.InDelta(t, 10.0, stats.Min, 0.01)
	assert.InDelta(t, 30.0, stats.Max, 0.01)
}

func TestMetricsRecorder_WindowBounded(t *testing.T) {
	m := NewMetricsRecorder()
	// The first 50 samples at 1ms roll out of the window entirely.
	for i := 0; i < 50; i++ {
		m.RecordPhase(PhaseAnalysis, time.Millisecond)
	}
	for i := 0; i < metricsWindowSize; i++ {
		m.RecordPhase(PhaseAnalysis, 5*time.Millisecond)
	}

	stats := m.Snapshot().Phases[PhaseAnalysis]
	assert.Equal(t, metricsWindowSize, stats.Count)
	assert.InDelta(t, 5.0, stats.Avg, 0.01)
	assert.InDelta(t, 5.0, stats.Min, 0.01)
}

func TestMetricsRecorder_QuerySamples(t *testing.T) {
	m := NewMetricsRecorder()
	m.RecordQuery(0.8, 2)
	m.RecordQuery(0.4, 4)

	snap := m.Snapshot()
	assert.InDelta(t, 0.6, snap.AvgSimilarity, 1e-9)
	assert.InDelta(t, 3.0, snap.AvgDocuments, 1e-9)
	assert.Equal(t, uint64(2), snap.Queries)
}

func TestMetricsRecorder_EmptySnapshot(t *testing.T) {
	m := NewMetricsRecorder()
	snap := m.Snapshot()
	assert.Empty(t, snap.Phases)
	assert.Zero(t, snap.AvgSimilarity)
	assert.Zero(t, snap.Queries)
}
