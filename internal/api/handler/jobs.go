package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/videoarena/videoarena/internal/api/response"
	"github.com/videoarena/videoarena/internal/queue"
	"github.com/videoarena/videoarena/internal/store"
	"github.com/videoarena/videoarena/pkg/models"
)

const (
	defaultListLimit     = 50
	maxListLimit         = 200
	defaultRetentionDays = 7
)

// NewListJobsHandler returns the handler for GET /api/v1/jobs.
func NewListJobsHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		jobs, err := q.List(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list jobs", nil)
			return
		}
		response.JSON(w, jobs)
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := fetchJob(w, r, q)
		if !ok {
			return
		}
		response.JSON(w, job)
	}
}

// NewCancelJobHandler returns the handler for POST /api/v1/jobs/{jobID}/cancel.
// Only pending and running jobs can be cancelled.
func NewCancelJobHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		job, err := q.Cancel(r.Context(), jobID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		case errors.Is(err, queue.ErrInvalidTransition):
			response.Error(w, http.StatusBadRequest, "INVALID_TRANSITION", err.Error(), nil)
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel job", nil)
		default:
			response.JSON(w, job)
		}
	}
}

// NewDeleteJobHandler returns the handler for DELETE /api/v1/jobs/{jobID}.
func NewDeleteJobHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		err := q.Delete(r.Context(), jobID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete job", nil)
		default:
			response.JSON(w, map[string]string{"message": "Job deleted", "job_id": jobID})
		}
	}
}

// NewJobResultHandler returns the handler for GET /api/v1/jobs/{jobID}/result.
// The result payload exists only once the job completed.
func NewJobResultHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := fetchJob(w, r, q)
		if !ok {
			return
		}

		if job.Status != models.JobStatusCompleted {
			response.Error(w, http.StatusBadRequest, "JOB_NOT_COMPLETED",
				fmt.Sprintf("Job is not completed yet. Current status: %s", job.Status), nil)
			return
		}
		if len(job.Result) == 0 {
			response.Error(w, http.StatusNotFound, "RESULT_NOT_FOUND", "Job result not found", nil)
			return
		}
		response.JSON(w, job.Result)
	}
}

// NewCleanupJobsHandler returns the handler for POST /api/v1/jobs/cleanup.
// Retention is time-based: every job created more than N days ago is
// removed, whatever its status.
func NewCleanupJobsHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := defaultRetentionDays
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "days must be a non-negative integer", nil)
				return
			}
			days = n
		}

		removed, err := q.Cleanup(r.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clean up jobs", nil)
			return
		}
		response.JSON(w, map[string]any{
			"message": fmt.Sprintf("Cleaned up jobs older than %d days", days),
			"removed": removed,
		})
	}
}

func fetchJob(w http.ResponseWriter, r *http.Request, q *queue.Queue) (*models.Job, bool) {
	jobID := chi.URLParam(r, "jobID")
	job, err := q.Get(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		return nil, false
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
		return nil, false
	}
	return job, true
}
