package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/api/domain"
	"github.com/fluxolabs/fluxo-backend/internal/api/dto"
	"github.com/fluxolabs/fluxo-backend/internal/api/model"
	"github.com/fluxolabs/fluxo-backend/internal/validate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// queueMessage is the envelope published to RabbitMQ; workers fetch
// everything else from the job row.
type queueMessage struct {
	JobID string `json:"job_id"`
	Agent string `json:"agent"`
}

// AnalyzeOnchain handles POST /api/v1/agent/onchain/analyze
func (h *AgentHandler) AnalyzeOnchain(c *gin.Context) {
	var req dto.OnchainAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid onchain analyze request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	wallet, err := validate.WalletAddress(req.Wallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	req.Wallet = wallet

	h.submit(c, domain.AgentOnchain, req)
}

// AnalyzeSocial handles POST /api/v1/agent/social/analyze
func (h *AgentHandler) AnalyzeSocial(c *gin.Context) {
	var req dto.SocialAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid social analyze request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	h.submit(c, domain.AgentSocial, req)
}

// AnalyzeMacro handles POST /api/v1/agent/macro/analyze
func (h *AgentHandler) AnalyzeMacro(c *gin.Context) {
	var req dto.MacroAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid macro analyze request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	h.submit(c, domain.AgentMacro, req)
}

// submit creates a PENDING job row and publishes its id to the queue.
// The request never blocks on job execution; the queue publish is the
// only side effect beyond the insert.
func (h *AgentHandler) submit(c *gin.Context, agent string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode payload",
		})
		return
	}

	now := time.Now().UTC()
	job := model.Job{
		JobID:     uuid.New().String(),
		Agent:     agent,
		Payload:   body,
		State:     domain.JobStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	msg, err := json.Marshal(queueMessage{JobID: job.JobID, Agent: agent})
	if err != nil {
		h.logger.Error("Failed to encode queue message",
			slog.String("agent", agent),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode queue message",
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.store.CreateJob(ctx, &job); err != nil {
		h.logger.Error("Failed to create job",
			slog.String("agent", agent),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	if err := h.queue.PublishWithRetry(ctx, msg, "application/json"); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)

		// The row exists but no worker will ever see it; close it out
		// so clients polling the id observe a terminal state.
		if markErr := h.store.MarkEnqueueFailure(ctx, job.JobID, "failed to enqueue job"); markErr != nil {
			h.logger.Error("Failed to mark enqueue failure",
				slog.String("job_id", job.JobID),
				slog.String("error", markErr.Error()),
			)
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	h.logger.Info("Job submitted",
		slog.String("job_id", job.JobID),
		slog.String("agent", agent),
	)

	c.JSON(http.StatusAccepted, dto.SubmitResponse{JobID: job.JobID})
}

// Status handles GET /api/v1/agent/:agent/status/:job_id
func (h *AgentHandler) Status(c *gin.Context) {
	agent := c.Param("agent")
	jobID := c.Param("job_id")

	if !domain.KnownAgent(agent) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown agent",
		})
		return
	}

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	ctx := c.Request.Context()

	// Terminal states are immutable, so a cache hit needs no DB read.
	// The key is agent-scoped: a job cached through its own path must
	// stay invisible on every other agent's route.
	if h.cache != nil {
		if cached := h.cache.GetStatus(ctx, agent, jobID); cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	job, err := h.store.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	if job.Agent != agent {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	resp := dto.StatusResponse{
		JobID: job.JobID,
		State: job.State,
	}

	switch job.State {
	case domain.JobStateSuccess:
		resp.Result = job.Result
	case domain.JobStateFailure:
		resp.Error = &dto.JobError{
			Kind:    job.ErrorKind.String,
			Message: job.ErrorMessage.String,
		}
	}

	if h.cache != nil && domain.IsTerminal(job.State) {
		h.cache.PutStatus(ctx, agent, jobID, &resp)
	}

	c.JSON(http.StatusOK, resp)
}
