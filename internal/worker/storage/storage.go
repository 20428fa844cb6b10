package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fluxolabs/fluxo-backend/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob attempts to claim a job using optimistic locking.
// Returns the job's agent and payload on success, ErrJobAlreadyClaimed
// when the job is not in PENDING state. A redelivered message for a
// job another worker already claimed lands here and is skipped.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE analysis_jobs
		SET state = $1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND state = $3
		RETURNING job_id, agent, payload
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStateRunning, jobID, domain.JobStatePending).Scan(
		&job.JobID,
		&job.Agent,
		&job.Payload,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.State = domain.JobStateRunning

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("agent", job.Agent),
	)

	return &job, nil
}

// GetJobState returns a job's current state.
func (s *Storage) GetJobState(ctx context.Context, jobID string) (string, error) {
	query := `SELECT state FROM analysis_jobs WHERE job_id = $1`

	var state string
	if err := s.db.GetContext(ctx, &state, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrJobNotFound
		}
		return "", fmt.Errorf("failed to get job state: %w", err)
	}

	return state, nil
}

// MarkSuccess transitions a RUNNING job to SUCCESS and stores its
// result. The state guard makes the write idempotent under redelivery:
// a job that already reached a terminal state is left untouched.
func (s *Storage) MarkSuccess(ctx context.Context, jobID string, result any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		UPDATE analysis_jobs
		SET state = $1,
		    result = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND state = $4
	`

	res, err := s.db.ExecContext(ctx, query, domain.JobStateSuccess, resultJSON, jobID, domain.JobStateRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job success: %w", err)
	}

	s.logTransition(res, jobID, domain.JobStateSuccess)
	return nil
}

// MarkFailure transitions a RUNNING job to FAILURE with a classified
// error. Same terminal-state guard as MarkSuccess.
func (s *Storage) MarkFailure(ctx context.Context, jobID, errorKind, errorMessage string) error {
	query := `
		UPDATE analysis_jobs
		SET state = $1,
		    error_kind = $2,
		    error_message = $3,
		    updated_at = NOW()
		WHERE job_id = $4
		  AND state = $5
	`

	res, err := s.db.ExecContext(ctx, query, domain.JobStateFailure, errorKind, errorMessage, jobID, domain.JobStateRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job failure: %w", err)
	}

	s.logTransition(res, jobID, domain.JobStateFailure)
	return nil
}

func (s *Storage) logTransition(res sql.Result, jobID, state string) {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	if rowsAffected == 0 {
		s.logger.Warn("Terminal transition skipped - job not in RUNNING state",
			slog.String("job_id", jobID),
			slog.String("target_state", state),
		)
		return
	}

	s.logger.Info("Job state updated",
		slog.String("job_id", jobID),
		slog.String("state", state),
	)
}
