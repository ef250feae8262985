package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/videoarena/videoarena/pkg/models"
)

// SQLiteStore implements Store on an embedded SQLite database. WAL mode plus
// synchronous=FULL makes every committed write fsync-durable, so a crash
// right after WriteJob returns cannot lose the update.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if needed) the job database at dbPath and
// bootstraps the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("%s: %w (also failed to close db: %v)", p, err, closeErr)
			}
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("initialize schema: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			job_type TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			progress_message TEXT,
			request_data TEXT NOT NULL,
			result TEXT,
			error TEXT,
			started_at INTEGER,
			completed_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("execute schema query: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// jobRow is the storage representation; timestamps are unix nanoseconds.
type jobRow struct {
	ID              string         `db:"id"`
	JobType         string         `db:"job_type"`
	Status          string         `db:"status"`
	Progress        int            `db:"progress"`
	ProgressMessage sql.NullString `db:"progress_message"`
	RequestData     []byte         `db:"request_data"`
	Result          []byte         `db:"result"`
	Error           sql.NullString `db:"error"`
	StartedAt       sql.NullInt64  `db:"started_at"`
	CompletedAt     sql.NullInt64  `db:"completed_at"`
	CreatedAt       int64          `db:"created_at"`
	UpdatedAt       int64          `db:"updated_at"`
}

func toRow(job *models.Job) jobRow {
	row := jobRow{
		ID:          job.ID,
		JobType:     job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		RequestData: job.RequestData,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt.UnixNano(),
		UpdatedAt:   job.UpdatedAt.UnixNano(),
	}
	if job.ProgressMessage != nil {
		row.ProgressMessage = sql.NullString{String: *job.ProgressMessage, Valid: true}
	}
	if job.Error != nil {
		row.Error = sql.NullString{String: *job.Error, Valid: true}
	}
	if job.StartedAt != nil {
		row.StartedAt = sql.NullInt64{Int64: job.StartedAt.UnixNano(), Valid: true}
	}
	if job.CompletedAt != nil {
		row.CompletedAt = sql.NullInt64{Int64: job.CompletedAt.UnixNano(), Valid: true}
	}
	return row
}

func fromRow(row jobRow) *models.Job {
	job := &models.Job{
		ID:          row.ID,
		Type:        row.JobType,
		Status:      row.Status,
		Progress:    row.Progress,
		RequestData: row.RequestData,
		Result:      row.Result,
		CreatedAt:   time.Unix(0, row.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, row.UpdatedAt).UTC(),
	}
	if row.ProgressMessage.Valid {
		job.ProgressMessage = &row.ProgressMessage.String
	}
	if row.Error.Valid {
		job.Error = &row.Error.String
	}
	if row.StartedAt.Valid {
		t := time.Unix(0, row.StartedAt.Int64).UTC()
		job.StartedAt = &t
	}
	if row.CompletedAt.Valid {
		t := time.Unix(0, row.CompletedAt.Int64).UTC()
		job.CompletedAt = &t
	}
	return job
}

func (s *SQLiteStore) WriteJob(ctx context.Context, job *models.Job) error {
	row := toRow(job)
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR REPLACE INTO jobs
		 (id, job_type, status, progress, progress_message, request_data, result, error, started_at, completed_at, created_at, updated_at)
		 VALUES (:id, :job_type, :status, :progress, :progress_message, :request_data, :result, :error, :started_at, :completed_at, :created_at, :updated_at)`,
		row)
	if err != nil {
		return fmt.Errorf("write job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, job_type, status, progress, progress_message, request_data, result, error, started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return fromRow(row), nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, job_type, status, progress, progress_message, request_data, result, error, started_at, completed_at, created_at, updated_at
		 FROM jobs ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		var row jobRow
		if err := rows.StructScan(&row); err != nil {
			// a garbled record fails only itself, never the listing
			slog.Warn("skipping unreadable job row", "error", err)
			continue
		}
		jobs = append(jobs, fromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete jobs before %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete jobs before %s: %w", cutoff, err)
	}
	return int(n), nil
}

var _ Store = (*SQLiteStore)(nil)
