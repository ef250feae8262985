// Package queue owns the durable job lifecycle: it creates job records,
// runs background work bound to them, applies partial updates, and is the
// only writer of job state.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videoarena/videoarena/internal/cache"
	"github.com/videoarena/videoarena/internal/store"
	"github.com/videoarena/videoarena/pkg/models"
)

var ErrInvalidTransition = errors.New("invalid job status transition")

const statusCacheTTL = 30 * time.Minute

// Work is one background execution bound to a job. It returns the result
// payload to persist on success. A context.Canceled error means the job was
// cancelled cooperatively; Cancel or Shutdown writes the cancelled state.
type Work func(ctx context.Context) (json.RawMessage, error)

// Notifier receives a snapshot after every job update. Used for the
// websocket feed; must not block.
type Notifier interface {
	JobUpdated(job *models.Job)
}

// Queue supervises jobs: it owns the store, the advisory status cache, and
// the registry of live background tasks.
type Queue struct {
	store    store.Store
	cache    cache.Cache
	notifier Notifier

	mu sync.Mutex // linearizes read-modify-write job updates

	tasksMu sync.Mutex
	tasks   map[string]*task

	estimateTick time.Duration // progress estimator interval
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithNotifier registers a job-update notifier.
func WithNotifier(n Notifier) Option {
	return func(q *Queue) { q.notifier = n }
}

// New creates a Queue on top of the given store and cache.
func New(st store.Store, ca cache.Cache, opts ...Option) *Queue {
	q := &Queue{
		store:        st,
		cache:        ca,
		tasks:        make(map[string]*task),
		estimateTick: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Create allocates a job id and persists a pending job. It never runs any
// work itself.
func (q *Queue) Create(ctx context.Context, jobType string, requestData json.RawMessage) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Status:      models.JobStatusPending,
		RequestData: requestData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := q.store.WriteJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	_ = q.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)
	q.notify(job)
	return job, nil
}

// StartBackground launches work as an independent background execution bound
// to jobID and returns immediately. Distinct jobs run concurrently with no
// queueing between them; the downstream model API is the bottleneck, not
// local resources. The registry entry is removed when the task finishes,
// whatever the outcome.
func (q *Queue) StartBackground(jobID string, work Work) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	q.tasksMu.Lock()
	q.tasks[jobID] = t
	q.tasksMu.Unlock()

	go q.run(ctx, jobID, t, work)
}

func (q *Queue) run(ctx context.Context, jobID string, t *task, work Work) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in background job", "job_id", jobID, "error", r)
			_, _ = q.Update(context.Background(), jobID,
				WithStatus(models.JobStatusFailed),
				WithError(fmt.Sprintf("panic: %v", r)))
		}
		q.tasksMu.Lock()
		delete(q.tasks, jobID)
		q.tasksMu.Unlock()
		t.cancel()
		close(t.done)
	}()

	bg := context.Background()
	if _, err := q.Update(bg, jobID, WithStatus(models.JobStatusRunning)); err != nil {
		slog.Error("failed to mark job running", "job_id", jobID, "error", err)
		return
	}

	result, err := work(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		// Cancel or Shutdown writes the cancelled state.
	case err != nil:
		slog.Error("job failed", "job_id", jobID, "error", err)
		if _, uerr := q.Update(bg, jobID,
			WithStatus(models.JobStatusFailed),
			WithError(err.Error())); uerr != nil && !errors.Is(uerr, ErrInvalidTransition) {
			slog.Error("failed to mark job failed", "job_id", jobID, "error", uerr)
		}
	default:
		if _, uerr := q.Update(bg, jobID,
			WithStatus(models.JobStatusCompleted),
			WithResult(result),
			WithProgress(100),
			WithProgressMessage("Completed")); uerr != nil && !errors.Is(uerr, ErrInvalidTransition) {
			slog.Error("failed to mark job completed", "job_id", jobID, "error", uerr)
		}
	}
}

// Update applies a partial, read-modify-write update to a job. A job already
// in a terminal state rejects every update, not just status changes;
// started_at and completed_at are stamped automatically; progress only moves
// forward. The lock covers only the read-modify-write against the store; the
// cache set and the notifier run outside it, so a slow notifier cannot stall
// updates to other jobs.
func (q *Queue) Update(ctx context.Context, jobID string, opts ...UpdateOption) (*models.Job, error) {
	var p updateParams
	for _, opt := range opts {
		opt(&p)
	}

	q.mu.Lock()

	job, err := q.store.GetJob(ctx, jobID)
	if err != nil {
		q.mu.Unlock()
		return nil, err
	}
	if models.TerminalStatus(job.Status) {
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidTransition, job.Status)
	}

	now := time.Now().UTC()
	if p.status != nil && *p.status != job.Status {
		job.Status = *p.status
		if job.Status == models.JobStatusRunning && job.StartedAt == nil {
			job.StartedAt = &now
		}
		if models.TerminalStatus(job.Status) && job.CompletedAt == nil {
			job.CompletedAt = &now
		}
	}
	if p.progress != nil && *p.progress > job.Progress {
		job.Progress = min(*p.progress, 100)
	}
	if p.progressMessage != nil {
		job.ProgressMessage = p.progressMessage
	}
	if p.result != nil {
		job.Result = p.result
	}
	if p.errMsg != nil {
		job.Error = p.errMsg
	}
	job.UpdatedAt = now

	if err := q.store.WriteJob(ctx, job); err != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("updating job: %w", err)
	}
	q.mu.Unlock()

	_ = q.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)
	q.notify(job)
	return job, nil
}

// Cancel signals the background execution to stop at its next cooperative
// checkpoint and forces the job to cancelled. In-flight model calls may
// still complete; their results are discarded. Cancelling a job already in
// a terminal state is an invalid transition.
func (q *Queue) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := q.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(job.Status) {
		return nil, fmt.Errorf("%w: cannot cancel %s job", ErrInvalidTransition, job.Status)
	}

	q.tasksMu.Lock()
	if t, ok := q.tasks[jobID]; ok {
		t.cancel()
	}
	q.tasksMu.Unlock()

	return q.Update(ctx, jobID, WithStatus(models.JobStatusCancelled))
}

// Get returns a job by id.
func (q *Queue) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return q.store.GetJob(ctx, jobID)
}

// List returns up to limit jobs, most recently modified first.
func (q *Queue) List(ctx context.Context, limit int) ([]*models.Job, error) {
	return q.store.ListJobs(ctx, limit)
}

// Delete removes a job record. A running task keeps executing but its final
// update will fail against the missing record; explicit cancel-then-delete
// is the expected sequence for live jobs.
func (q *Queue) Delete(ctx context.Context, jobID string) error {
	err := q.store.DeleteJob(ctx, jobID)
	if err == nil {
		_ = q.cache.Delete(ctx, cache.JobStatusKey(jobID))
	}
	return err
}

// Cleanup deletes all jobs created before now-olderThan, regardless of
// status, and returns how many were removed.
func (q *Queue) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return q.store.DeleteJobsBefore(ctx, cutoff)
}

// Wait blocks until the background task for jobID has finished. Returns
// immediately when no task is live.
func (q *Queue) Wait(jobID string) {
	q.tasksMu.Lock()
	t, ok := q.tasks[jobID]
	q.tasksMu.Unlock()
	if ok {
		<-t.done
	}
}

// Shutdown cancels every live task, waits for each to finish or for ctx to
// expire, and marks the drained jobs cancelled. Tasks that reached a terminal
// state on their own before the drain are left untouched.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.tasksMu.Lock()
	live := make(map[string]*task, len(q.tasks))
	for id, t := range q.tasks {
		t.cancel()
		live[id] = t
	}
	q.tasksMu.Unlock()

	for id, t := range live {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		// a drained task exits without writing a terminal state of its own
		if _, err := q.Update(context.Background(), id,
			WithStatus(models.JobStatusCancelled),
			WithProgressMessage("Cancelled by shutdown")); err != nil &&
			!errors.Is(err, ErrInvalidTransition) && !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to mark drained job cancelled", "job_id", id, "error", err)
		}
	}
	return nil
}

func (q *Queue) notify(job *models.Job) {
	if q.notifier != nil {
		q.notifier.JobUpdated(job)
	}
}

type updateParams struct {
	status          *string
	progress        *int
	progressMessage *string
	result          json.RawMessage
	errMsg          *string
}

// UpdateOption selects which job fields an Update call changes.
type UpdateOption func(*updateParams)

func WithStatus(status string) UpdateOption {
	return func(p *updateParams) { p.status = &status }
}

func WithProgress(progress int) UpdateOption {
	return func(p *updateParams) { p.progress = &progress }
}

func WithProgressMessage(msg string) UpdateOption {
	return func(p *updateParams) { p.progressMessage = &msg }
}

func WithResult(result json.RawMessage) UpdateOption {
	return func(p *updateParams) { p.result = result }
}

func WithError(msg string) UpdateOption {
	return func(p *updateParams) { p.errMsg = &msg }
}
