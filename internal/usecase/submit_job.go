package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/broker"
	"github.com/tallyq/tally/internal/codec"
	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/metrics"
	"github.com/tallyq/tally/internal/repository"
	"github.com/tallyq/tally/internal/task"
)

const maxContentSize = 1 << 20 // 1 MB

// SubmitJobUsecase handles the business logic for submitting
// file-statistics jobs. Submission is non-blocking: it returns as soon
// as the job is durably recorded and enqueued, never after execution.
type SubmitJobUsecase struct {
	store     repository.JobStore
	publisher broker.Publisher
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase.
func NewSubmitJobUsecase(store repository.JobStore, pub broker.Publisher, logger *zap.Logger) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		store:     store,
		publisher: pub,
		logger:    logger,
	}
}

// Execute encodes the content, creates a PENDING job, publishes it, and
// returns a handle carrying the job identifier. Empty content is a
// valid submission; its statistics are simply zero.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, content []byte) (*JobHandle, error) {
	if len(content) > maxContentSize {
		return nil, domain.ErrPayloadTooLarge
	}

	// Generate UUIDv7 (time-ordered)
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	job := &domain.Job{
		JobID:     jobID,
		Task:      task.FileStatsName,
		Payload:   codec.Encode(content),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	// Persist the PENDING row first so a handle constructed from the
	// returned id always resolves.
	if err := uc.store.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job in store", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Publish to the broker. A broker outage is a hard submit failure:
	// the core gives no buffering guarantee when the channel is down.
	if err := uc.publisher.Publish(ctx, job); err != nil {
		uc.logger.Error("Failed to publish job to broker", zap.Error(err), zap.String("job_id", jobID.String()))
		// The job was never enqueued, so settle it as FAILURE rather
		// than leaving a PENDING row nothing will ever complete.
		_, _ = uc.store.Settle(ctx, jobID, domain.Failure("job was never enqueued: broker unavailable"))
		return nil, domain.ErrPublishFailed
	}

	metrics.JobsSubmitted.Inc()

	uc.logger.Info("Job submitted",
		zap.String("job_id", jobID.String()),
		zap.String("task", job.Task),
		zap.Int("content_bytes", len(content)),
	)

	return NewJobHandle(uc.store, jobID), nil
}
