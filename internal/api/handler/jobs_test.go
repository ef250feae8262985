package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoarena/videoarena/internal/api"
	"github.com/videoarena/videoarena/internal/api/handler"
	"github.com/videoarena/videoarena/internal/queue"
	"github.com/videoarena/videoarena/pkg/models"
)

func newJobsServer(t *testing.T) (*queue.Queue, http.Handler) {
	t.Helper()
	q := newTestQueue(t)
	router := api.NewRouter(api.Dependencies{
		ListJobsHandler:    handler.NewListJobsHandler(q),
		GetJobHandler:      handler.NewGetJobHandler(q),
		CancelJobHandler:   handler.NewCancelJobHandler(q),
		DeleteJobHandler:   handler.NewDeleteJobHandler(q),
		JobResultHandler:   handler.NewJobResultHandler(q),
		CleanupJobsHandler: handler.NewCleanupJobsHandler(q),
	})
	return q, router
}

func createJob(t *testing.T, q *queue.Queue) *models.Job {
	t.Helper()
	job, err := q.Create(context.Background(), models.JobTypeSingleCompare,
		json.RawMessage(`{"video_id":"v1","prompt":"p"}`))
	require.NoError(t, err)
	return job
}

func TestListJobs(t *testing.T) {
	q, router := newJobsServer(t)
	createJob(t, q)
	createJob(t, q)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestListJobs_LimitApplied(t *testing.T) {
	q, router := newJobsServer(t)
	for range 3 {
		createJob(t, q)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestListJobs_InvalidLimit(t *testing.T) {
	_, router := newJobsServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))

	rec = doJSON(t, router, http.MethodGet, "/api/v1/jobs?limit=-5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	_, router := newJobsServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", errorCode(t, rec))
}

func TestCancelJob_Pending(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decodeJob(t, rec)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)
}

func TestCancelJob_AlreadyCompleted(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)
	_, err := q.Update(context.Background(), job.ID, queue.WithStatus(models.JobStatusCompleted))
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, rec))
}

func TestCancelJob_NotFound(t *testing.T) {
	_, router := newJobsServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/ghost/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", errorCode(t, rec))
}

func TestDeleteJob(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteJob_NotFound(t *testing.T) {
	_, router := newJobsServer(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/jobs/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobResult_PendingJob(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "JOB_NOT_COMPLETED", errorCode(t, rec))
}

func TestJobResult_CompletedWithoutResult(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)
	_, err := q.Update(context.Background(), job.ID, queue.WithStatus(models.JobStatusCompleted))
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESULT_NOT_FOUND", errorCode(t, rec))
}

func TestJobResult_Completed(t *testing.T) {
	q, router := newJobsServer(t)
	job := createJob(t, q)
	_, err := q.Update(context.Background(), job.ID,
		queue.WithStatus(models.JobStatusCompleted),
		queue.WithResult(json.RawMessage(`{"overall_summary":"done"}`)))
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "done", body.Data["overall_summary"])
}

func TestCleanupJobs_InvalidDays(t *testing.T) {
	_, router := newJobsServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/cleanup?days=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupJobs_NothingToRemove(t *testing.T) {
	q, router := newJobsServer(t)
	createJob(t, q) // fresh, inside retention

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/cleanup?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Removed int `json:"removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Data.Removed)

	jobs, err := q.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestCleanupJobs_DaysZeroRemovesEverything(t *testing.T) {
	q, router := newJobsServer(t)
	createJob(t, q)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/cleanup?days=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	jobs, err := q.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
