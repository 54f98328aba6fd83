// Package jobs runs ingestion in the background and tracks run status.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/service"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IngestRunner executes one ingestion run.
type IngestRunner interface {
	Run(ctx context.Context, opts service.IngestionOptions) (*service.IngestionResult, error)
}

// Job is a snapshot of one ingestion run.
type Job struct {
	ID         string                   `json:"id"`
	Status     string                   `json:"status"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Result     *service.IngestionResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// Manager launches ingestion jobs and keeps their status in memory.
// Jobs survive until process restart; durable job history is not a
// concern of this service.
type Manager struct {
	mu      sync.RWMutex
	runner  IngestRunner
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
	logger  *zap.Logger
}

// NewManager creates a Manager around runner.
func NewManager(runner IngestRunner, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		runner:  runner,
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
		logger:  logger,
	}
}

// Start launches an ingestion run in the background and returns its job
// id immediately. The run detaches from the caller's context; use
// Shutdown to cancel in-flight jobs.
func (m *Manager) Start(opts service.IngestionOptions) string {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.jobs[id] = &Job{ID: id, Status: StatusPending, StartedAt: time.Now().UTC()}
	m.cancels[id] = cancel
	m.mu.Unlock()

	go m.run(ctx, id, opts)
	return id
}

func (m *Manager) run(ctx context.Context, id string, opts service.IngestionOptions) {
	m.setStatus(id, StatusRunning)
	m.logger.Info("ingestion job started", zap.String("job_id", id))

	result, err := m.runner.Run(ctx, opts)

	now := time.Now().UTC()
	m.mu.Lock()
	job := m.jobs[id]
	job.FinishedAt = &now
	job.Result = result
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
	}
	delete(m.cancels, id)
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("ingestion job failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	m.logger.Info("ingestion job completed", zap.String("job_id", id))
}

func (m *Manager) setStatus(id, status string) {
	m.mu.Lock()
	if job, ok := m.jobs[id]; ok {
		job.Status = status
	}
	m.mu.Unlock()
}

// Get returns a copy of the job's current state.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Shutdown cancels every in-flight job.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
}
