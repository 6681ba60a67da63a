package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/delivery/http/middleware"
	"github.com/tallyq/tally/internal/usecase"
)

const maxBodyBytes = 2 << 20 // 2 MB: encoded payload plus multipart overhead

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(
	submitUC *usecase.SubmitJobUsecase,
	handles *usecase.HandleFactory,
	logger *zap.Logger,
	rateLimitPerMin int,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(logger)
		v1.GET("/health", healthHandler.Health)

		// Jobs (with rate limiting and body cap)
		jobHandler := NewJobHandler(submitUC, handles, logger)
		jobs := v1.Group("/jobs", middleware.RateLimiter(rateLimitPerMin))
		jobs.POST("", middleware.BodySizeLimit(maxBodyBytes), jobHandler.Submit)
		jobs.GET("/:id", jobHandler.GetStatus)
		jobs.GET("/:id/result", jobHandler.GetResult)

		// WebSocket for real-time status updates
		wsHandler := NewStreamHandler(handles, logger)
		jobs.GET("/:id/stream", wsHandler.Stream)
	}

	return router
}
