// ABOUTME: Job manager owning the priority queue, worker pool, and job lifecycle
// ABOUTME: Handles submission, dispatch, cancellation, timeouts, progress, and stats

package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/pkg/types"
)

// DefaultTimeout bounds jobs whose workflow declares no timeout
const DefaultTimeout = 10 * time.Minute

// Outcome is what an execution function reports back to the manager.
// A paused graph execution sets Paused with its checkpoint id.
type Outcome struct {
	Result       map[string]any
	Paused       bool
	CheckpointID string
}

// ExecuteFunc runs a job to completion (or pause) on a worker slot
type ExecuteFunc func(ctx context.Context, job *types.Job, progress types.ProgressFunc) (*Outcome, error)

// ResumeFunc continues a paused graph job with human input
type ResumeFunc func(ctx context.Context, job *types.Job, humanInput map[string]any, progress types.ProgressFunc) (*Outcome, error)

// Config holds job manager configuration
type Config struct {
	MaxConcurrent  int
	MaxQueueLength int // 0 = unlimited
	DefaultTimeout time.Duration
	Execute        ExecuteFunc
	Resume         ResumeFunc
	Webhooks       *Dispatcher
	OnTerminal     func(job *types.Job)
	Logger         *zerolog.Logger
}

// SubmitOptions carries the per-job submission parameters
type SubmitOptions struct {
	Priority  types.Priority
	Webhook   *types.WebhookConfig
	TimeoutMS int64
}

// entry pairs a job with its runtime control state. All mutations of
// the job go through the entry's lock; the manager-wide lock only
// covers the queue, the job table, and the running count.
type entry struct {
	mu              sync.Mutex
	job             *types.Job
	timeout         time.Duration
	cancel          context.CancelFunc
	cancelRequested bool
}

// Manager schedules asynchronous job execution
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	queue   *Queue
	running int

	maxConcurrent  int
	maxQueueLength int
	defaultTimeout time.Duration
	execute        ExecuteFunc
	resume         ResumeFunc
	webhooks       *Dispatcher
	onTerminal     func(job *types.Job)
	logger         zerolog.Logger
}

// NewManager creates a job manager
func NewManager(config *Config) (*Manager, error) {
	if config == nil || config.Execute == nil {
		return nil, errors.New("job manager requires an execute function")
	}

	maxConcurrent, err := types.ValidateConcurrent(config.MaxConcurrent)
	if err != nil {
		return nil, err
	}

	defaultTimeout := config.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Manager{
		jobs:           make(map[string]*entry),
		queue:          NewQueue(),
		maxConcurrent:  maxConcurrent,
		maxQueueLength: config.MaxQueueLength,
		defaultTimeout: defaultTimeout,
		execute:        config.Execute,
		resume:         config.Resume,
		webhooks:       config.Webhooks,
		onTerminal:     config.OnTerminal,
		logger:         logger,
	}, nil
}

// Submit creates a job, enqueues it by priority, and returns it in
// PENDING state. Execution starts as soon as a worker slot opens.
func (m *Manager) Submit(workflowID string, workflowType types.WorkflowType, inputs map[string]any, opts *SubmitOptions) (*types.Job, error) {
	if opts == nil {
		opts = &SubmitOptions{}
	}
	priority := opts.Priority
	if priority == "" {
		priority = types.PriorityNormal
	}
	if !priority.Valid() {
		return nil, types.NewValidationError("priority", "priority must be low, normal, or high")
	}

	job := &types.Job{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
		Inputs:       inputs,
		Priority:     priority,
		Webhook:      opts.Webhook,
		Status:       types.JobPending,
		CreatedAt:    time.Now().UTC(),
	}

	timeout := m.defaultTimeout
	if opts.TimeoutMS > 0 {
		timeout = time.Duration(opts.TimeoutMS) * time.Millisecond
	}

	m.mu.Lock()
	if m.maxQueueLength > 0 && m.queue.Len() >= m.maxQueueLength {
		m.mu.Unlock()
		return nil, types.NewQueueFullError(m.maxQueueLength)
	}
	e := &entry{job: job, timeout: timeout}
	m.jobs[job.ID] = e
	m.queue.Push(job)
	m.mu.Unlock()

	m.logger.Info().
		Str("job_id", job.ID).
		Str("workflow", workflowID).
		Str("priority", string(priority)).
		Msg("Job submitted")

	m.dispatch()
	return job.Clone(), nil
}

// dispatch fills open worker slots from the queue
func (m *Manager) dispatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.running < m.maxConcurrent && m.queue.Len() > 0 {
		job := m.queue.Pop()
		e := m.jobs[job.ID]
		m.running++
		go m.runJob(e)
	}
}

// runJob executes a dequeued job on its worker slot
func (m *Manager) runJob(e *entry) {
	e.mu.Lock()
	if e.cancelRequested {
		// Cancelled between dequeue and start
		m.completeLocked(e, types.JobCancelled, nil, "job cancelled")
		e.mu.Unlock()
		m.releaseSlot()
		return
	}

	now := time.Now().UTC()
	e.job.Status = types.JobRunning
	e.job.StartedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	e.cancel = cancel
	jobCopy := e.job.Clone()
	e.mu.Unlock()

	defer cancel()

	progress := func(p types.Progress) {
		e.mu.Lock()
		e.job.Progress = p
		e.mu.Unlock()
	}

	outcome, err := m.execute(ctx, jobCopy, progress)
	m.finish(e, ctx, outcome, err)
	m.releaseSlot()
}

func (m *Manager) releaseSlot() {
	m.mu.Lock()
	m.running--
	m.mu.Unlock()
	m.dispatch()
}

// finish applies the execution outcome to the job under its lock
func (m *Manager) finish(e *entry, ctx context.Context, outcome *Outcome, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A cancel of a RUNNING job lands here when the executor observes
	// the signal; a cancel of a PAUSED job already completed the job.
	if e.job.Status.IsTerminal() {
		return
	}

	switch {
	case err == nil && outcome != nil && outcome.Paused:
		e.job.Status = types.JobPaused
		e.job.CheckpointID = outcome.CheckpointID
		e.cancel = nil
		m.logger.Info().
			Str("job_id", e.job.ID).
			Str("checkpoint_id", outcome.CheckpointID).
			Msg("Job paused for human input")
		return

	case err == nil:
		var result map[string]any
		if outcome != nil {
			result = outcome.Result
		}
		m.completeLocked(e, types.JobCompleted, result, "")

	case ctx.Err() == context.DeadlineExceeded || types.IsTimeout(err):
		m.completeLocked(e, types.JobTimeout, nil, "job exceeded timeout of "+e.timeout.String())

	case errors.Is(err, context.Canceled):
		m.completeLocked(e, types.JobCancelled, nil, err.Error())

	default:
		m.completeLocked(e, types.JobFailed, nil, err.Error())
	}
}

// completeLocked moves a job to a terminal state and fires the
// terminal hooks. Callers hold the entry lock.
func (m *Manager) completeLocked(e *entry, status types.JobStatus, result map[string]any, errMsg string) {
	if !e.job.Status.CanTransition(status) {
		return
	}

	now := time.Now().UTC()
	e.job.Status = status
	e.job.CompletedAt = &now
	if e.job.StartedAt != nil {
		e.job.ExecutionTimeMS = now.Sub(*e.job.StartedAt).Milliseconds()
	}
	e.job.Result = result
	e.job.Error = errMsg
	e.cancel = nil

	m.logger.Info().
		Str("job_id", e.job.ID).
		Str("workflow", e.job.WorkflowID).
		Str("status", string(status)).
		Dur("duration", time.Duration(e.job.ExecutionTimeMS)*time.Millisecond).
		Msg("Job finished")

	snapshot := e.job.Clone()
	if snapshot.Webhook != nil && m.webhooks != nil {
		go m.webhooks.Deliver(snapshot)
	}
	if m.onTerminal != nil {
		go m.onTerminal(snapshot)
	}
}

// Cancel cancels a job. Idempotent: pending jobs leave the queue and
// complete immediately, running jobs are signalled and complete when
// the executor observes the signal, terminal jobs are a no-op.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	e, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return types.NewNotFoundError("job", jobID)
	}

	e.mu.Lock()
	switch e.job.Status {
	case types.JobPending:
		if m.queue.Remove(jobID) {
			m.completeLocked(e, types.JobCancelled, nil, "job cancelled before start")
		} else {
			// Dequeued but not yet started; the worker will observe this
			e.cancelRequested = true
		}
	case types.JobRunning:
		if e.cancel != nil {
			e.cancel()
		}
	case types.JobPaused:
		m.completeLocked(e, types.JobCancelled, nil, "job cancelled while paused")
	default:
		// already terminal
	}
	e.mu.Unlock()
	m.mu.Unlock()
	return nil
}

// Resume continues a paused graph job with human input. The call runs
// the resumed execution synchronously and returns the job in its
// resulting state.
func (m *Manager) Resume(jobID string, humanInput map[string]any) (*types.Job, error) {
	if m.resume == nil {
		return nil, types.NewResumeError("", "resume is not supported")
	}

	m.mu.Lock()
	e, exists := m.jobs[jobID]
	m.mu.Unlock()
	if !exists {
		return nil, types.NewNotFoundError("job", jobID)
	}

	e.mu.Lock()
	if e.job.Status != types.JobPaused {
		checkpointID := e.job.CheckpointID
		e.mu.Unlock()
		return nil, types.NewResumeError(checkpointID, "job is not paused")
	}
	e.job.Status = types.JobRunning

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	e.cancel = cancel
	jobCopy := e.job.Clone()
	e.mu.Unlock()

	defer cancel()

	progress := func(p types.Progress) {
		e.mu.Lock()
		e.job.Progress = p
		e.mu.Unlock()
	}

	outcome, err := m.resume(ctx, jobCopy, humanInput, progress)
	m.finish(e, ctx, outcome, err)
	return m.Get(jobID)
}

// FindByCheckpoint returns the paused job holding a checkpoint id
func (m *Manager) FindByCheckpoint(checkpointID string) (*types.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.jobs {
		e.mu.Lock()
		match := e.job.CheckpointID == checkpointID && e.job.Status == types.JobPaused
		job := e.job.Clone()
		e.mu.Unlock()
		if match {
			return job, true
		}
	}
	return nil, false
}

// Get returns a snapshot of a job
func (m *Manager) Get(jobID string) (*types.Job, error) {
	m.mu.Lock()
	e, exists := m.jobs[jobID]
	m.mu.Unlock()
	if !exists {
		return nil, types.NewNotFoundError("job", jobID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

// ListFilter narrows List results; zero values match everything
type ListFilter struct {
	Status       types.JobStatus
	WorkflowID   string
	WorkflowType types.WorkflowType
	Limit        int
}

// List returns job snapshots, newest first
func (m *Manager) List(filter *ListFilter) []*types.Job {
	if filter == nil {
		filter = &ListFilter{}
	}

	m.mu.Lock()
	entries := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	jobs := make([]*types.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		job := e.job.Clone()
		e.mu.Unlock()

		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.WorkflowID != "" && job.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.WorkflowType != "" && job.WorkflowType != filter.WorkflowType {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs
}

// Delete removes a job record. Running jobs cannot be deleted.
func (m *Manager) Delete(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.jobs[jobID]
	if !exists {
		return types.NewNotFoundError("job", jobID)
	}

	e.mu.Lock()
	running := e.job.Status == types.JobRunning
	e.mu.Unlock()
	if running {
		return types.NewValidationError("job", "cannot delete a running job")
	}

	m.queue.Remove(jobID)
	delete(m.jobs, jobID)
	return nil
}

// Stats summarizes the job table and queue
type Stats struct {
	Total          int                     `json:"total"`
	ByStatus       map[types.JobStatus]int `json:"by_status"`
	ByWorkflowType map[string]int          `json:"by_workflow_type"`
	Queue          QueueStats              `json:"queue"`
}

// QueueStats describes the scheduler's current load
type QueueStats struct {
	Length        int `json:"length"`
	Running       int `json:"running"`
	MaxConcurrent int `json:"max_concurrent"`
}

// GetStats returns queue and job statistics
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		entries = append(entries, e)
	}
	stats := Stats{
		ByStatus:       make(map[types.JobStatus]int),
		ByWorkflowType: make(map[string]int),
		Queue: QueueStats{
			Length:        m.queue.Len(),
			Running:       m.running,
			MaxConcurrent: m.maxConcurrent,
		},
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		status := e.job.Status
		workflowType := string(e.job.WorkflowType)
		e.mu.Unlock()

		stats.Total++
		stats.ByStatus[status]++
		stats.ByWorkflowType[workflowType]++
	}
	return stats
}
