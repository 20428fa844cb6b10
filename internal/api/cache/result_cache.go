package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/api/dto"
	"github.com/fluxolabs/fluxo-backend/shared/redis"
)

const keyPrefix = "fluxo:job:"

// statusKey scopes entries to the agent route they were served through.
// The handler hides jobs queried through the wrong agent's path; a
// job_id-only key would let a warm cache answer for any agent.
func statusKey(agent, jobID string) string {
	return keyPrefix + agent + ":" + jobID
}

// ResultCache caches terminal status responses in Redis. Terminal
// states never change, so a cached entry can be served without
// touching Postgres. Every operation is best-effort: a cache error
// degrades to a database read, never to a request failure.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewResultCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetStatus returns a cached terminal status response, or nil on miss.
func (c *ResultCache) GetStatus(ctx context.Context, agent, jobID string) *dto.StatusResponse {
	data, err := c.client.Get(ctx, statusKey(agent, jobID))
	if err != nil {
		c.logger.Warn("Result cache read failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return nil
	}
	if data == nil {
		return nil
	}

	var resp dto.StatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Result cache entry is malformed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return nil
	}

	return &resp
}

// PutStatus stores a terminal status response.
func (c *ResultCache) PutStatus(ctx context.Context, agent, jobID string, resp *dto.StatusResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, statusKey(agent, jobID), data, c.ttl); err != nil {
		c.logger.Warn("Result cache write failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}
}
