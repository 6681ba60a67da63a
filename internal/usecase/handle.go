package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/repository"
)

// JobHandle is the client-facing view of a submitted job. It carries no
// state beyond the job identifier, so it can be reconstructed from a
// bare id after a client restart and polled against the store at any
// time.
type JobHandle struct {
	id    uuid.UUID
	store repository.JobStore
}

// NewJobHandle reconstructs a handle from a job identifier.
func NewJobHandle(store repository.JobStore, id uuid.UUID) *JobHandle {
	return &JobHandle{id: id, store: store}
}

// ID returns the job identifier.
func (h *JobHandle) ID() uuid.UUID {
	return h.id
}

// Successful reports whether the job reached SUCCESS. A PENDING or
// FAILURE job reports false without error; store outages are errors.
func (h *JobHandle) Successful(ctx context.Context) (bool, error) {
	job, err := h.store.GetByID(ctx, h.id)
	if err != nil {
		return false, err
	}
	return job.Status == domain.StatusSuccess, nil
}

// Status returns the job's status document. Result and Failure are set
// only in terminal states; a PENDING document carries neither.
func (h *JobHandle) Status(ctx context.Context) (*domain.JobStatusDoc, error) {
	job, err := h.store.GetByID(ctx, h.id)
	if err != nil {
		return nil, err
	}
	return &domain.JobStatusDoc{
		JobID:   job.JobID,
		Status:  job.Status,
		Result:  job.Result,
		Failure: job.Failure,
	}, nil
}

// Result returns the computed statistics. It fails with ErrNotReady
// while the job is PENDING, and with the job's failure outcome when the
// job settled as FAILURE; callers re-poll after ErrNotReady.
func (h *JobHandle) Result(ctx context.Context) (*domain.Stats, error) {
	job, err := h.store.GetByID(ctx, h.id)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domain.StatusSuccess:
		return job.Result, nil
	case domain.StatusFailure:
		return nil, &FailedError{Message: job.Failure}
	default:
		return nil, domain.ErrNotReady
	}
}

// HandleFactory reconstructs job handles from bare identifiers, so the
// delivery layer can poll jobs without carrying any other client state.
type HandleFactory struct {
	store repository.JobStore
}

// NewHandleFactory creates a handle factory over the given store.
func NewHandleFactory(store repository.JobStore) *HandleFactory {
	return &HandleFactory{store: store}
}

// For returns a handle for the given job identifier.
func (f *HandleFactory) For(id uuid.UUID) *JobHandle {
	return NewJobHandle(f.store, id)
}

// FailedError reports that a job settled as FAILURE, carrying the
// worker's failure message.
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return "job failed"
	}
	return "job failed: " + e.Message
}
