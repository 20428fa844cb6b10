package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/api/domain"
	"github.com/fluxolabs/fluxo-backend/internal/api/model"
	"github.com/fluxolabs/fluxo-backend/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// NewStorageWithDB wires an existing sqlx handle; used by tests.
func NewStorageWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO analysis_jobs (
			job_id, agent, payload, state, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Agent,
		job.Payload,
		job.State,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, agent, payload, state, result,
			error_kind, error_message, created_at, updated_at
		FROM analysis_jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// MarkEnqueueFailure records a FAILURE for a job whose queue publish
// failed after the row was created. Guarded on PENDING so it can never
// clobber a worker's write.
func (s *Storage) MarkEnqueueFailure(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE analysis_jobs
		SET state = $1,
			error_kind = 'enqueue_failed',
			error_message = $2,
			updated_at = NOW()
		WHERE job_id = $3 AND state = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStateFailure, message, jobID, domain.JobStatePending)
	if err != nil {
		return fmt.Errorf("failed to mark enqueue failure: %w", err)
	}

	return nil
}

type JobFilter struct {
	Agent    string
	State    string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
        SELECT
            job_id, agent, payload, state, result,
            error_kind, error_message, created_at, updated_at
        FROM analysis_jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Agent != "" {
		query += fmt.Sprintf(" AND agent = $%d", argIdx)
		args = append(args, filter.Agent)
		argIdx++
	}

	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, filter.State)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Keyset pagination over (created_at, job_id) for a stable order
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra row to detect whether more results exist
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
