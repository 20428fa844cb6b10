package handler

import (
	"context"
	"log/slog"

	"github.com/fluxolabs/fluxo-backend/internal/api/dto"
	"github.com/fluxolabs/fluxo-backend/internal/api/model"
	"github.com/fluxolabs/fluxo-backend/internal/api/storage"
)

// JobStore is what handlers need from the result store.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	MarkEnqueueFailure(ctx context.Context, jobID, message string) error
}

// Publisher pushes job messages onto the work queue.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// StatusCache caches terminal status responses. Entries are scoped to
// the agent path they were served through, so a hit never answers for
// another agent's route. May be nil.
type StatusCache interface {
	GetStatus(ctx context.Context, agent, jobID string) *dto.StatusResponse
	PutStatus(ctx context.Context, agent, jobID string, resp *dto.StatusResponse)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Store  JobStore
	Queue  Publisher
	Cache  StatusCache
}

// AgentHandler handles agent job submission and status requests
type AgentHandler struct {
	logger *slog.Logger
	store  JobStore
	queue  Publisher
	cache  StatusCache
}

// NewAgentHandler creates a new AgentHandler instance
func NewAgentHandler(deps *Dependencies) *AgentHandler {
	return &AgentHandler{
		logger: deps.Logger,
		store:  deps.Store,
		queue:  deps.Queue,
		cache:  deps.Cache,
	}
}
