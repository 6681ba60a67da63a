package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/usecase"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development; restrict in production
	},
}

// StreamHandler pushes job status over WebSocket so clients do not have
// to poll by hand.
type StreamHandler struct {
	handles *usecase.HandleFactory
	logger  *zap.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(handles *usecase.HandleFactory, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		handles: handles,
		logger:  logger,
	}
}

// Stream handles GET /api/v1/jobs/:id/stream (WebSocket upgrade)
func (h *StreamHandler) Stream(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("job_id", idStr))

	handle := h.handles.For(id)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		status, err := handle.Status(c.Request.Context())
		if err != nil {
			// A missing job and a store outage must read differently
			// on the client side.
			switch {
			case errors.Is(err, domain.ErrJobNotFound):
				conn.WriteJSON(gin.H{"error": "Job not found"})
			case errors.Is(err, domain.ErrStoreUnavailable):
				h.logger.Error("Job store unavailable during stream", zap.Error(err), zap.String("job_id", idStr))
				conn.WriteJSON(gin.H{"error": "Service temporarily unavailable"})
			default:
				h.logger.Error("Status lookup failed during stream", zap.Error(err), zap.String("job_id", idStr))
				conn.WriteJSON(gin.H{"error": "Internal server error"})
			}
			return
		}

		if err := conn.WriteJSON(status); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		// Stop streaming once the job reaches a terminal state
		if status.Status.IsTerminal() {
			h.logger.Debug("Job reached terminal state, closing WebSocket", zap.String("job_id", idStr))
			return
		}
	}
}
