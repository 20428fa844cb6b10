package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/fluxolabs/fluxo-backend/internal/agent"
	"github.com/fluxolabs/fluxo-backend/internal/worker/domain"
)

// processJob runs one queued job through its agent and records the
// terminal state. A nil return acks the message; stored failures are
// acked too, since the outcome is already recorded in the database.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	// Claim job (PENDING -> RUNNING) with optimistic locking.
	job, err := w.storage.ClaimJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			// The claim guard rejects both a redelivered claimed job and
			// a message whose row never existed. Either way the ack is a
			// safe no-op; distinguish the two in the log.
			state, stateErr := w.storage.GetJobState(ctx, msg.JobID)
			if errors.Is(stateErr, domain.ErrJobNotFound) {
				w.logger.Warn("No job row for queued message, acking",
					slog.String("job_id", msg.JobID),
				)
			} else {
				w.logger.Warn("Job already claimed, acking redelivery",
					slog.String("job_id", msg.JobID),
					slog.String("state", state),
				)
			}
			return nil
		}
		// Database error, likely transient.
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	ag, ok := w.registry.Get(job.Agent)
	if !ok {
		w.logger.Error("No agent registered for job",
			slog.String("job_id", job.JobID),
			slog.String("agent", job.Agent),
		)
		w.recordFailure(ctx, job.JobID, agent.NewError(agent.KindInternal,
			fmt.Sprintf("no agent registered for %q", job.Agent)))
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	result, err := w.executeAgent(jobCtx, ag, job)
	if err != nil {
		w.recordFailure(ctx, job.JobID, err)
		return nil
	}

	if err := result.Validate(); err != nil {
		w.logger.Error("Agent produced invalid result",
			slog.String("job_id", job.JobID),
			slog.String("agent", job.Agent),
			slog.String("error", err.Error()),
		)
		w.recordFailure(ctx, job.JobID, agent.WrapError(agent.KindInvalidResult,
			"agent produced invalid result", err))
		return nil
	}

	if err := w.storage.MarkSuccess(ctx, job.JobID, result); err != nil {
		// The work is done but the write failed. Requeueing would only
		// hit the claim guard, so log loudly and ack.
		w.logger.Error("Failed to mark job success",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.JobID),
		slog.String("agent", job.Agent),
	)

	return nil
}

// executeAgent runs the agent with panic recovery. A panicking agent
// fails the one job instead of taking down the worker process.
func (w *Worker) executeAgent(ctx context.Context, ag agent.Agent, job *domain.Job) (result agent.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Agent panicked",
				slog.String("job_id", job.JobID),
				slog.String("agent", job.Agent),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = nil
			err = agent.NewError(agent.KindInternal, fmt.Sprintf("agent panicked: %v", r))
		}
	}()

	return ag.Analyze(ctx, job.Payload)
}

// recordFailure classifies the error and writes the terminal FAILURE
// state. Failures are not retried automatically; clients resubmit.
func (w *Worker) recordFailure(ctx context.Context, jobID string, err error) {
	kind, message := classifyFailure(err)

	if updateErr := w.storage.MarkFailure(ctx, jobID, kind, message); updateErr != nil {
		w.logger.Error("Failed to mark job failure",
			slog.String("job_id", jobID),
			slog.String("error", updateErr.Error()),
		)
	}
}

// classifyFailure maps an execution error onto a stored error kind.
func classifyFailure(err error) (kind, message string) {
	var agentErr *agent.Error
	if errors.As(err, &agentErr) {
		return string(agentErr.Kind), agentErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return string(agent.KindProviderTimeout), "job execution timed out"
	}

	return string(agent.KindInternal), err.Error()
}
