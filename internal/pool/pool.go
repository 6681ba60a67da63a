package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/metrics"
	"github.com/tallyq/tally/internal/usecase"
)

// WorkerPool manages a fixed-size pool of goroutines that process
// delivered jobs. Each worker handles one job at a time; concurrency
// across the deployment comes from running multiple workers competing
// for deliveries on the same broker queue.
type WorkerPool struct {
	size      int
	jobs      <-chan *domain.JobMessage
	processUC *usecase.ProcessJobUsecase
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, jobs <-chan *domain.JobMessage, processUC *usecase.ProcessJobUsecase, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:      size,
		jobs:      jobs,
		processUC: processUC,
		logger:    logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current jobs and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case msg, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Job channel closed", zap.Int("worker_id", id))
				return
			}

			job := msg.Job

			p.logger.Info("Worker processing job",
				zap.Int("worker_id", id),
				zap.String("job_id", job.JobID.String()),
				zap.String("task", job.Task),
			)

			metrics.WorkersActive.Inc()
			startTime := time.Now()

			isDuplicate, err := p.processUC.Execute(ctx, job)
			elapsed := time.Since(startTime).Seconds()

			metrics.WorkersActive.Dec()

			if err != nil {
				p.logger.Error("Job processing failed",
					zap.Int("worker_id", id),
					zap.String("job_id", job.JobID.String()),
					zap.Error(err),
				)

				// An unknown task name is poison for every worker with
				// this registry and goes to the DLQ. Everything else —
				// shutdown mid-delay, a store or lock outage, an
				// execution still in flight elsewhere — is transient:
				// requeue so the broker redelivers and the job can
				// still settle.
				requeue := !errors.Is(err, domain.ErrUnknownTask)
				if nackErr := msg.Nack(requeue); nackErr != nil {
					p.logger.Error("Failed to NACK message",
						zap.String("job_id", job.JobID.String()),
						zap.Error(nackErr),
					)
				}

				metrics.JobsProcessed.WithLabelValues("error").Inc()
				metrics.ProcessingDuration.Observe(elapsed)
				continue
			}

			if isDuplicate {
				p.logger.Debug("Duplicate job skipped",
					zap.Int("worker_id", id),
					zap.String("job_id", job.JobID.String()),
				)
				// Duplicate → still ACK so the message leaves the queue.
				if ackErr := msg.Ack(); ackErr != nil {
					p.logger.Error("Failed to ACK duplicate message",
						zap.String("job_id", job.JobID.String()),
						zap.Error(ackErr),
					)
				}
				metrics.DuplicateDeliveries.Inc()
				continue
			}

			// Processed and settled — ACK the message.
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Error("Failed to ACK message after processing",
					zap.String("job_id", job.JobID.String()),
					zap.Error(ackErr),
				)
			}

			metrics.JobsProcessed.WithLabelValues("settled").Inc()
			metrics.ProcessingDuration.Observe(elapsed)
		}
	}
}
