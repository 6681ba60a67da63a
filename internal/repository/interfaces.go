package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tallyq/tally/internal/domain"
)

// JobStore defines the interface for job persistence operations.
// Implementations must be safe for concurrent use: status polling reads
// may race the single terminal write per job without external locking.
type JobStore interface {
	// Create inserts a new PENDING job.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Settle writes the terminal outcome for a job. The write must be
	// write-once per job: if the job already left PENDING, Settle is a
	// no-op reporting settled=false. This is the only operation that
	// moves a job out of PENDING.
	Settle(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (settled bool, err error)
}

// SettlementLock defines the interface for distributed deduplication
// locks, so redelivered jobs are detected before re-execution.
type SettlementLock interface {
	// Acquire attempts to take an exclusive processing lock for a job.
	// Returns true if the lock was acquired (first delivery), false if
	// already held (duplicate delivery).
	Acquire(ctx context.Context, jobID uuid.UUID) (bool, error)

	// Release re-arms the lock TTL for eventual cleanup.
	Release(ctx context.Context, jobID uuid.UUID) error
}
