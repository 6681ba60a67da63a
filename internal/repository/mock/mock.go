package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/repository"
)

// ---- JobStore mock ----

var _ repository.JobStore = (*JobStore)(nil)

// JobStore is an in-memory test double for repository.JobStore. Settle
// follows the production first-writer-wins semantics so tests can
// exercise duplicate executions.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.Job

	// Hook functions for injecting errors.
	CreateFn  func(ctx context.Context, job *domain.Job) error
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	SettleFn  func(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (bool, error)

	// Recorded calls for assertions.
	Settlements []Settlement
}

// Settlement records one Settle call.
type Settlement struct {
	ID      uuid.UUID
	Outcome domain.Outcome
}

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (m *JobStore) Create(ctx context.Context, job *domain.Job) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.JobID] = &clone
	return nil
}

func (m *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *JobStore) Settle(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (bool, error) {
	m.mu.Lock()
	m.Settlements = append(m.Settlements, Settlement{ID: id, Outcome: outcome})
	m.mu.Unlock()

	if m.SettleFn != nil {
		return m.SettleFn(ctx, id, outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return false, nil
	}
	job.Status = outcome.Status
	job.Result = outcome.Stats
	job.Failure = outcome.Message
	return true, nil
}

// GetAll returns all stored jobs (for test assertions).
func (m *JobStore) GetAll() []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, j)
	}
	return result
}

// ---- SettlementLock mock ----

var _ repository.SettlementLock = (*SettlementLock)(nil)

// SettlementLock is a test double for repository.SettlementLock.
type SettlementLock struct {
	mu sync.Mutex

	AcquireFn func(ctx context.Context, jobID uuid.UUID) (bool, error)
	ReleaseFn func(ctx context.Context, jobID uuid.UUID) error

	AcquireCalls []uuid.UUID
	ReleaseCalls []uuid.UUID

	held map[uuid.UUID]bool
}

func (m *SettlementLock) Acquire(ctx context.Context, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, jobID)
	if m.held == nil {
		m.held = make(map[uuid.UUID]bool)
	}
	first := !m.held[jobID]
	m.held[jobID] = true
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, jobID)
	}
	return first, nil
}

func (m *SettlementLock) Release(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, jobID)
	m.mu.Unlock()
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, jobID)
	}
	return nil
}
