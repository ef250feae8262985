package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/videoarena/videoarena/internal/api/response"
	"github.com/videoarena/videoarena/internal/compare"
	"github.com/videoarena/videoarena/internal/queue"
	"github.com/videoarena/videoarena/pkg/models"
)

// Comparer is the pipeline interface the compare handlers depend on.
type Comparer interface {
	ModelNames() []string
	ValidateCompare(req models.CompareRequest) error
	ValidateBatch(req models.BatchCompareRequest) error
	RunSingle(ctx context.Context, req models.CompareRequest, rep compare.ProgressReporter) (*models.CompareResult, error)
	RunBatch(ctx context.Context, req models.BatchCompareRequest, rep compare.ProgressReporter) (*models.BatchCompareResult, error)
}

// NewCompareHandler returns the handler for POST /api/v1/compare. Validation
// happens before the job exists: an unknown video or model is rejected here
// and nothing is persisted.
func NewCompareHandler(q *queue.Queue, pipe Comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := pipe.ValidateCompare(req); err != nil {
			writeValidationError(w, err)
			return
		}

		raw, err := json.Marshal(req)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		job, err := q.Create(r.Context(), models.JobTypeSingleCompare, raw)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
			return
		}

		q.StartBackground(job.ID, func(ctx context.Context) (json.RawMessage, error) {
			result, err := pipe.RunSingle(ctx, req, q.Progress(job.ID))
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})

		response.Accepted(w, job)
	}
}

// NewBatchCompareHandler returns the handler for POST /api/v1/compare/batch.
func NewBatchCompareHandler(q *queue.Queue, pipe Comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.BatchCompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := pipe.ValidateBatch(req); err != nil {
			writeValidationError(w, err)
			return
		}

		raw, err := json.Marshal(req)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		job, err := q.Create(r.Context(), models.JobTypeBatchCompare, raw)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
			return
		}

		q.StartBackground(job.ID, func(ctx context.Context) (json.RawMessage, error) {
			result, err := pipe.RunBatch(ctx, req, q.Progress(job.ID))
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})

		response.Accepted(w, job)
	}
}

// NewModelsHandler returns the handler for GET /api/v1/models.
func NewModelsHandler(pipe Comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{"models": pipe.ModelNames()})
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, compare.ErrUnknownVideo):
		response.Error(w, http.StatusNotFound, "VIDEO_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, compare.ErrUnknownModel):
		response.Error(w, http.StatusBadRequest, "UNKNOWN_MODEL", err.Error(), nil)
	case errors.Is(err, compare.ErrEmptyPrompt):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	default:
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
}
