package router

import (
	"github.com/fluxolabs/fluxo-backend/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, health *handler.HealthHandler) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", health.Health)

	agentHandler := handler.NewAgentHandler(deps)

	v1 := r.Group("/api/v1")
	{
		agents := v1.Group("/agent")
		{
			// Submission: one route per agent so each request body
			// is validated against that agent's schema.
			agents.POST("/onchain/analyze", agentHandler.AnalyzeOnchain)
			agents.POST("/social/analyze", agentHandler.AnalyzeSocial)
			agents.POST("/macro/analyze", agentHandler.AnalyzeMacro)

			// Status polling is uniform across agents.
			agents.GET("/:agent/status/:job_id", agentHandler.Status)
		}

		v1.GET("/jobs", agentHandler.ListJobs)
	}

	return r
}
