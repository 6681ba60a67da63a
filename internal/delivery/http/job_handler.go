package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/usecase"
)

// JobHandler handles HTTP requests for statistics jobs.
type JobHandler struct {
	submitUC *usecase.SubmitJobUsecase
	handles  *usecase.HandleFactory
	logger   *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(submitUC *usecase.SubmitJobUsecase, handles *usecase.HandleFactory, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		submitUC: submitUC,
		handles:  handles,
		logger:   logger,
	}
}

// Submit handles POST /api/v1/jobs. Content arrives either as a JSON
// body {"content": "..."} or as a multipart upload under the "file"
// field, mirroring the file-upload shape this service replaces.
func (h *JobHandler) Submit(c *gin.Context) {
	content, err := readContent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	handle, err := h.submitUC.Execute(c.Request.Context(), content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPublishFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("Submit job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, domain.SubmitResponse{
		JobID:  handle.ID(),
		Status: string(domain.StatusPending),
	})
}

// GetStatus handles GET /api/v1/jobs/:id
func (h *JobHandler) GetStatus(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	status, err := h.handles.For(id).Status(c.Request.Context())
	if err != nil {
		h.renderLookupError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetResult handles GET /api/v1/jobs/:id/result
func (h *JobHandler) GetResult(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	stats, err := h.handles.For(id).Result(c.Request.Context())
	if err != nil {
		var failed *usecase.FailedError
		switch {
		case errors.Is(err, domain.ErrNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "Job is not yet complete"})
		case errors.As(err, &failed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": failed.Message})
		default:
			h.renderLookupError(c, id, err)
		}
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *JobHandler) renderLookupError(c *gin.Context, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("Job store unavailable", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		h.logger.Error("Job lookup failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func readContent(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return []byte(req.Content), nil
}
