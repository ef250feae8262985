package models

import (
	"encoding/json"
	"time"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

const (
	JobTypeSingleCompare = "single_compare"
	JobTypeBatchCompare  = "batch_compare"
)

// TerminalStatus reports whether a job status admits no further transitions.
func TerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job tracks an async comparison request. The API returns a job_id on
// POST /api/v1/compare; the client polls GET /api/v1/jobs/{job_id} until
// status is terminal. Jobs are owned and mutated by the queue only.
type Job struct {
	ID              string          `db:"id"               json:"job_id"`
	Type            string          `db:"job_type"         json:"job_type"`
	Status          string          `db:"status"           json:"status"`
	Progress        int             `db:"progress"         json:"progress"`
	ProgressMessage *string         `db:"progress_message" json:"progress_message,omitempty"`
	RequestData     json.RawMessage `db:"request_data"     json:"request_data"`
	Result          json.RawMessage `db:"result"           json:"result,omitempty"`
	Error           *string         `db:"error"            json:"error,omitempty"`
	StartedAt       *time.Time      `db:"started_at"       json:"started_at,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at"     json:"completed_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"       json:"updated_at"`
}
