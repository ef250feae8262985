package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/videoarena/videoarena/internal/api/middleware"
	"github.com/videoarena/videoarena/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CompareHandler      http.HandlerFunc
	BatchCompareHandler http.HandlerFunc
	ModelsHandler       http.HandlerFunc

	ListJobsHandler    http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	CancelJobHandler   http.HandlerFunc
	DeleteJobHandler   http.HandlerFunc
	JobResultHandler   http.HandlerFunc
	CleanupJobsHandler http.HandlerFunc

	UploadVideoHandler   http.HandlerFunc
	GetVideoHandler      http.HandlerFunc
	VideoMetadataHandler http.HandlerFunc

	WSHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/ws", orNotImplemented(deps.WSHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/compare", orNotImplemented(deps.CompareHandler))
		r.Post("/api/v1/compare/batch", orNotImplemented(deps.BatchCompareHandler))
		r.Get("/api/v1/models", orNotImplemented(deps.ModelsHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Post("/api/v1/jobs/cleanup", orNotImplemented(deps.CleanupJobsHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJobHandler))
		r.Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.DeleteJobHandler))
		r.Get("/api/v1/jobs/{jobID}/result", orNotImplemented(deps.JobResultHandler))

		r.Post("/api/v1/videos", orNotImplemented(deps.UploadVideoHandler))
		r.Get("/api/v1/videos/{videoID}", orNotImplemented(deps.GetVideoHandler))
		r.Get("/api/v1/videos/{videoID}/metadata", orNotImplemented(deps.VideoMetadataHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
