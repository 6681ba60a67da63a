package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/codec"
	"github.com/tallyq/tally/internal/delay"
	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/repository"
	"github.com/tallyq/tally/internal/task"
)

// ErrExecutionInFlight is returned for a delivery whose settlement lock
// is held while the job is still PENDING. The delivery should be
// requeued, not acknowledged.
var ErrExecutionInFlight = errors.New("job execution in flight elsewhere")

// ProcessJobUsecase orchestrates one delivered job: lock → decode →
// compute → delay → settle. Decode failures and task errors are
// business outcomes settled as FAILURE; only infrastructure faults
// (store or lock unreachable, unknown task) surface as errors.
type ProcessJobUsecase struct {
	store    repository.JobStore
	lock     repository.SettlementLock
	registry *task.Registry
	delay    delay.Strategy
	logger   *zap.Logger
}

// NewProcessJobUsecase creates a new ProcessJobUsecase.
func NewProcessJobUsecase(
	store repository.JobStore,
	lock repository.SettlementLock,
	registry *task.Registry,
	delayStrategy delay.Strategy,
	logger *zap.Logger,
) *ProcessJobUsecase {
	return &ProcessJobUsecase{
		store:    store,
		lock:     lock,
		registry: registry,
		delay:    delayStrategy,
		logger:   logger,
	}
}

// Execute processes a single delivered job. Returns (isDuplicate, error).
func (uc *ProcessJobUsecase) Execute(ctx context.Context, job *domain.Job) (bool, error) {
	// Step 1: settlement lock. A held lock means another delivery of
	// this job is (or was) being executed — skip without touching the
	// store.
	acquired, err := uc.lock.Acquire(ctx, job.JobID)
	if err != nil {
		uc.logger.Error("Failed to acquire settlement lock", zap.Error(err), zap.String("job_id", job.JobID.String()))
		return false, err
	}
	if !acquired {
		// Only a settled job is safe to ack away. A held lock with the
		// job still PENDING means the other execution is in flight or
		// died before settling, so this delivery must go back to the
		// broker instead of being swallowed.
		current, err := uc.store.GetByID(ctx, job.JobID)
		if err != nil {
			return false, err
		}
		if !current.Status.IsTerminal() {
			return false, fmt.Errorf("%w: job %s locked but not settled", ErrExecutionInFlight, job.JobID)
		}
		uc.logger.Info("Duplicate delivery detected, skipping", zap.String("job_id", job.JobID.String()))
		return true, nil
	}

	// Step 2: resolve the task function. An unregistered name is a
	// worker misconfiguration, not a property of the job.
	fn, ok := uc.registry.Lookup(job.Task)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownTask, job.Task)
	}

	// Step 3: decode and compute. Both failure modes settle the job;
	// neither is allowed to escape and crash the worker loop.
	outcome := uc.run(ctx, fn, job)

	// Step 4: simulated processing latency. Failures take as long as
	// successes, so polling clients see the same timing either way.
	if err := uc.delay.Wait(ctx); err != nil {
		// Shutting down before the settle: leave the job PENDING and
		// let the broker redeliver it.
		return false, fmt.Errorf("delay interrupted: %w", err)
	}

	// Step 5: settle. The store's conditional write is the only place
	// a job leaves PENDING; a lost race here is not an error.
	settled, err := uc.store.Settle(ctx, job.JobID, outcome)
	if err != nil {
		uc.logger.Error("Failed to settle job", zap.Error(err), zap.String("job_id", job.JobID.String()))
		return false, err
	}
	if !settled {
		uc.logger.Info("Job already settled by a concurrent execution", zap.String("job_id", job.JobID.String()))
	}

	// Step 6: re-arm the lock TTL for eventual cleanup.
	_ = uc.lock.Release(ctx, job.JobID)

	uc.logger.Info("Job processed",
		zap.String("job_id", job.JobID.String()),
		zap.String("status", string(outcome.Status)),
		zap.Bool("settled", settled),
	)

	return false, nil
}

// run computes the job's outcome. It never returns an error: malformed
// payloads and task failures settle as FAILURE.
func (uc *ProcessJobUsecase) run(ctx context.Context, fn task.Func, job *domain.Job) domain.Outcome {
	contents, err := codec.Decode(job.Payload)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			uc.logger.Warn("Payload failed to decode",
				zap.String("job_id", job.JobID.String()),
				zap.Error(err),
			)
			return domain.Failure("failed to decode payload: " + decodeErr.Reason.Error())
		}
		return domain.Failure("failed to decode payload")
	}

	stats, err := fn(ctx, contents)
	if err != nil {
		uc.logger.Warn("Task reported failure",
			zap.String("job_id", job.JobID.String()),
			zap.String("task", job.Task),
			zap.Error(err),
		)
		return domain.Failure(err.Error())
	}

	return domain.Success(stats)
}
