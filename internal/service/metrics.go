package service

import (
	"sync"
	"time"
)

// Query phases tracked by the metrics recorder.
const (
	PhaseAnalysis   = "analysis"
	PhaseEmbedding  = "embedding"
	PhaseRetrieval  = "retrieval"
	PhaseFormatting = "formatting"
)

// metricsWindowSize bounds every rolling sample window.
const metricsWindowSize = 100

// QueryMetrics is the per-query timing breakdown returned with each
// response. Durations are milliseconds.
type QueryMetrics struct {
	AnalysisMS    float64 `json:"analysis_ms"`
	EmbeddingMS   float64 `json:"embedding_ms"`
	RetrievalMS   float64 `json:"retrieval_ms"`
	FormattingMS  float64 `json:"formatting_ms"`
	TotalMS       float64 `json:"total_ms"`
	ResultCount   int     `json:"result_count"`
	DocumentCount int     `json:"document_count"`
	AvgSimilarity float64 `json:"avg_similarity"`
}

// PhaseStats aggregates one phase's rolling window.
type PhaseStats struct {
	Avg   float64 `json:"avg_ms"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
	Count int     `json:"count"`
}

// AggregateMetrics is a snapshot of the recorder's rolling windows.
type AggregateMetrics struct {
	Phases        map[string]PhaseStats `json:"phases"`
	AvgSimilarity float64               `json:"avg_similarity"`
	AvgDocuments  float64               `json:"avg_documents"`
	Queries       uint64                `json:"queries"`
}

// sampleWindow is a fixed-size ring of float64 samples.
type sampleWindow struct {
	samples [metricsWindowSize]float64
	next    int
	count   int
}

func (w *sampleWindow) add(v float64) {
	w.samples[w.next] = v
	w.next = (w.next + 1) % metricsWindowSize
	if w.count < metricsWindowSize {
		w.count++
	}
}

func (w *sampleWindow) stats() PhaseStats {
	if w.count == 0 {
		return PhaseStats{}
	}
	sum := 0.0
	min := w.samples[0]
	max := w.samples[0]
	for i := 0; i < w.count; i++ {
		v := w.samples[i]
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return PhaseStats{
		Avg:   sum / float64(w.count),
		Min:   min,
		Max:   max,
		Count: w.count,
	}
}

func (w *sampleWindow) mean() float64 {
	if w.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < w.count; i++ {
		sum += w.samples[i]
	}
	return sum / float64(w.count)
}

// MetricsRecorder keeps rolling windows of the last hundred samples per
// phase, plus result-quality windows. Safe for concurrent use.
type MetricsRecorder struct {
	mu         sync.Mutex
	phases     map[string]*sampleWindow
	similarity sampleWindow
	documents  sampleWindow
	queries    uint64
}

func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{phases: make(map[string]*sampleWindow, 4)}
}

// RecordPhase adds a duration sample for the named phase.
func (m *MetricsRecorder) RecordPhase(phase string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.phases[phase]
	if !ok {
		w = &sampleWindow{}
		m.phases[phase] = w
	}
	w.add(float64(d.Microseconds()) / 1000.0)
}

// RecordQuery adds the per-query result-quality samples.
func (m *MetricsRecorder) RecordQuery(avgSimilarity float64, documentCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.similarity.add(avgSimilarity)
	m.documents.add(float64(documentCount))
	m.queries++
}

// Snapshot returns the current rolling aggregates.
func (m *MetricsRecorder) Snapshot() AggregateMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := AggregateMetrics{
		Phases:        make(map[string]PhaseStats, len(m.phases)),
		AvgSimilarity: m.similarity.mean(),
		AvgDocuments:  m.documents.mean(),
		Queries:       m.queries,
	}
	for name, w := range m.phases {
		agg.Phases[name] = w.stats()
	}
	return agg
}
