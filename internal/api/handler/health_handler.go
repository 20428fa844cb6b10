package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the postgres and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness plus backing-store connectivity.
type HealthHandler struct {
	DB    Pinger
	Cache Pinger
	Queue interface{ IsConnected() bool }
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "up"
		}
	}

	if h.Queue != nil {
		if h.Queue.IsConnected() {
			checks["rabbitmq"] = "up"
		} else {
			checks["rabbitmq"] = "down"
			healthy = false
		}
	}

	if h.Cache != nil {
		if err := h.Cache.Ping(ctx); err != nil {
			// The result cache is best-effort; report but stay healthy.
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":  state,
		"service": "fluxo-api-service",
		"checks":  checks,
	})
}
