// Package jobs tracks asynchronous operations spawned by the request
// surface: a mutex-guarded registry mutated by job runners and read by
// status queries.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

const (
	// DefaultTimeoutSeconds bounds a job that specifies no timeout.
	DefaultTimeoutSeconds = 300

	// SyncWaitLimit is the longest a synchronous caller blocks before
	// being told to poll instead.
	SyncWaitLimit = 30 * time.Second

	pollInterval = 100 * time.Millisecond
)

// Runner is the function a job executes. The context carries the job's
// timeout; the returned payload becomes the job result.
type Runner func(ctx context.Context) (json.RawMessage, error)

// Manager is the job registry.
type Manager struct {
	mu      sync.Mutex
	jobs    map[models.JobID]*models.Job
	cancels map[models.JobID]context.CancelFunc
}

// NewManager creates an empty job registry.
func NewManager() *Manager {
	return &Manager{
		jobs:    make(map[models.JobID]*models.Job),
		cancels: make(map[models.JobID]context.CancelFunc),
	}
}

// Submit registers a job and starts it. timeoutSeconds <= 0 uses the
// default budget.
func (m *Manager) Submit(jobType models.JobType, timeoutSeconds int, run Runner) *models.Job {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	job := &models.Job{
		ID:             models.NewJobID(),
		Type:           jobType,
		Status:         models.JobPending,
		CreatedAt:      time.Now(),
		TimeoutSeconds: timeoutSeconds,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.cancels[job.ID] = cancel
	m.mu.Unlock()

	go m.execute(ctx, cancel, job.ID, run)
	return m.snapshot(job)
}

func (m *Manager) execute(ctx context.Context, cancel context.CancelFunc, id models.JobID, run Runner) {
	defer cancel()

	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobPending {
		// Cancelled before it started.
		m.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = models.JobRunning
	job.StartedAt = &now
	m.mu.Unlock()

	result, err := run(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok = m.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}

	done := time.Now()
	job.CompletedAt = &done
	switch {
	case err == nil:
		job.Status = models.JobCompleted
		job.Result = result
		job.Progress = 100
	case ctx.Err() == context.DeadlineExceeded:
		job.Status = models.JobTimeout
		job.Error = &models.JobError{
			Code:      models.CodeJobTimeout,
			Message:   fmt.Sprintf("job exceeded its %ds budget", job.TimeoutSeconds),
			Hint:      "retry with a larger timeout or poll the job status",
			Retryable: true,
		}
	default:
		job.Status = models.JobFailed
		job.Error = &models.JobError{
			Code:    models.CodeBusinessError,
			Message: err.Error(),
		}
	}
}

// Get returns the job by id.
func (m *Manager) Get(id models.JobID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, &models.JobError{
			Code:    models.CodeResourceNotFound,
			Message: fmt.Sprintf("job %s not found", id),
		}
	}
	return m.snapshotLocked(job), nil
}

// Cancel stops a pending or running job. Cancelling a terminal job is a
// state conflict.
func (m *Manager) Cancel(id models.JobID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, &models.JobError{
			Code:    models.CodeResourceNotFound,
			Message: fmt.Sprintf("job %s not found", id),
		}
	}
	if job.Status.Terminal() {
		return nil, &models.JobError{
			Code:    models.CodeStateConflict,
			Message: fmt.Sprintf("job %s is already %s", id, job.Status),
			Hint:    "only pending or running jobs can be cancelled",
		}
	}

	if cancel, ok := m.cancels[id]; ok {
		cancel()
	}
	now := time.Now()
	job.Status = models.JobCancelled
	job.CompletedAt = &now
	job.Error = &models.JobError{
		Code:      models.CodeJobCancelled,
		Message:   "job cancelled by caller",
		Retryable: true,
	}
	return m.snapshotLocked(job), nil
}

// UpdateProgress reports intermediate progress for a running job.
func (m *Manager) UpdateProgress(id models.JobID, percent int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	job.Progress = percent
	job.ProgressMessage = message
}

// WaitSync blocks until the job finishes or the sync budget runs out,
// polling the registry. A job still running after the budget is returned
// as-is so the caller can switch to polling.
func (m *Manager) WaitSync(ctx context.Context, id models.JobID, maxWait time.Duration) (*models.Job, error) {
	if maxWait <= 0 || maxWait > SyncWaitLimit {
		maxWait = SyncWaitLimit
	}
	deadline := time.Now().Add(maxWait)

	for {
		job, err := m.Get(id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// List returns snapshots of all registered jobs.
func (m *Manager) List() []*models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, m.snapshotLocked(job))
	}
	return out
}

func (m *Manager) snapshot(job *models.Job) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(job)
}

// snapshotLocked copies the job so readers never alias registry state.
func (m *Manager) snapshotLocked(job *models.Job) *models.Job {
	out := *job
	if job.Error != nil {
		e := *job.Error
		out.Error = &e
	}
	return &out
}
