package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-book-indexer/internal/errors"
	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/model"
)

const defaultCleanupInterval = time.Hour

// Func is the body of a background job. ctx is cancelled when the manager stops.
type Func func(ctx context.Context, job model.Job) error

// Options configures a Manager.
type Options struct {
	MaxWorkers      int
	Retention       time.Duration // finished jobs older than this are dropped
	CleanupInterval time.Duration
	Metrics         *metrics.Metrics
}

// Manager handles background job execution and tracking
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*model.Job
	workers   chan struct{} // Limits concurrent jobs
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup
	retention time.Duration
	interval  time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewManager creates a new job manager. Non-positive options fall back to
// one worker, 24h retention and an hourly cleanup.
func NewManager(opts Options) *Manager {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:      make(map[string]*model.Job),
		workers:   make(chan struct{}, opts.MaxWorkers),
		ctx:       ctx,
		cancel:    cancel,
		retention: opts.Retention,
		interval:  opts.CleanupInterval,
		metrics:   opts.Metrics,
		log:       logger.WithComponent("jobs"),
	}
}

// Start begins background cleanup of finished jobs.
func (m *Manager) Start() {
	m.log.Info("job manager started", "max_workers", cap(m.workers))
	m.wg.Add(1)
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for every goroutine to return.
// Pending jobs end up cancelled. Stop is idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.cancel()
		m.mu.Unlock()
		m.wg.Wait()
		m.log.Info("job manager stopped")
	})
}

// CreateJob registers a pending job and returns its ID.
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.log.Debug("created job", "job_id", job.ID, "type", job.Type, "index", job.IndexName)
	return job.ID
}

// GetJob retrieves a copy of a job by ID.
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns the jobs of an index, oldest first, optionally filtered by status.
// An empty indexName lists the jobs of every index.
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if indexName != "" && job.IndexName != indexName {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		result = append(result, copyJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ExecuteJob schedules a pending job. The job waits for a free worker, then
// runs jobFunc; its final status follows the returned error.
func (m *Manager) ExecuteJob(jobID string, jobFunc Func) error {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		m.finish(jobID, model.JobStatusCancelled, "job manager shutting down")
		return fmt.Errorf("job manager is shutting down")
	}
	// Registered under the lock so Stop cannot miss it
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		// Acquire worker slot
		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.finish(jobID, model.JobStatusCancelled, "job manager shutting down")
			return
		}
		defer func() { <-m.workers }()
		if m.ctx.Err() != nil {
			m.finish(jobID, model.JobStatusCancelled, "job manager shutting down")
			return
		}

		snapshot, ok := m.markRunning(jobID)
		if !ok {
			return
		}

		startTime := time.Now()
		err := jobFunc(m.ctx, snapshot)
		elapsed := time.Since(startTime)

		switch {
		case err != nil && m.ctx.Err() != nil:
			m.finish(jobID, model.JobStatusCancelled, err.Error())
			m.log.Warn("job cancelled", "job_id", jobID, "elapsed", elapsed, "error", err)
		case err != nil:
			m.finish(jobID, model.JobStatusFailed, err.Error())
			m.log.Error("job failed", "job_id", jobID, "elapsed", elapsed, "error", err)
		default:
			m.finish(jobID, model.JobStatusCompleted, "")
			m.log.Info("job completed", "job_id", jobID, "type", snapshot.Type, "elapsed", elapsed)
		}
	}()

	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) markRunning(jobID string) (model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return model.Job{}, false
	}
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	return *copyJob(job), true
}

// finish moves a job to a final status.
func (m *Manager) finish(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	now := time.Now()
	job.CompletedAt = &now
	jobType := job.Type
	m.mu.Unlock()

	m.metrics.ObserveJob(string(jobType), string(status))
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(m.retention)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how many
// were dropped.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.log.Info("cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// Workload returns how many jobs currently hold a worker slot.
func (m *Manager) Workload() int {
	return len(m.workers)
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	if job.Metadata != nil {
		jobCopy.Metadata = make(map[string]string, len(job.Metadata))
		for k, v := range job.Metadata {
			jobCopy.Metadata[k] = v
		}
	}
	return &jobCopy
}
