package store

import (
	"context"
	"errors"
	"time"

	"github.com/videoarena/videoarena/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the durable job record interface. All persistence goes through
// here. A write that returns nil must survive a crash immediately after it
// returns. Operations on a single job id are linearized by the backend.
type Store interface {
	Ping(ctx context.Context) error

	// WriteJob persists a full job snapshot, inserting or replacing.
	WriteJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// ListJobs returns up to limit jobs, most recently modified first.
	ListJobs(ctx context.Context, limit int) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	// DeleteJobsBefore removes every job created before cutoff, regardless
	// of status, and returns how many were removed.
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
