package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/repository"
)

// Ensure pgJobStore implements repository.JobStore.
var _ repository.JobStore = (*pgJobStore)(nil)

type pgJobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a PostgreSQL-backed job store. Failures other
// than a missing row are wrapped in domain.ErrStoreUnavailable so
// callers can tell an outage from a job that does not exist.
func NewJobStore(pool *pgxpool.Pool) repository.JobStore {
	return &pgJobStore{pool: pool}
}

func (s *pgJobStore) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (job_id, task, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, query,
		job.JobID, job.Task, job.Payload, job.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("%w: create job: %w", domain.ErrStoreUnavailable, err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (s *pgJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT job_id, task, payload, status, lines, characters, failure, created_at, updated_at
		FROM jobs
		WHERE job_id = $1`

	job := &domain.Job{}
	var lines, characters *int
	var failure *string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&job.JobID, &job.Task, &job.Payload, &job.Status,
		&lines, &characters, &failure,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("%w: get job by id: %w", domain.ErrStoreUnavailable, err)
	}

	if job.Status == domain.StatusSuccess && lines != nil && characters != nil {
		job.Result = &domain.Stats{Lines: *lines, Characters: *characters}
	}
	if failure != nil {
		job.Failure = *failure
	}
	return job, nil
}

// Settle writes the terminal state with a conditional update so the
// first writer wins. RowsAffected()==0 against an existing row means
// another execution already settled the job.
func (s *pgJobStore) Settle(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1, lines = $2, characters = $3, failure = $4, updated_at = $5
		WHERE job_id = $6 AND status = $7`

	var lines, characters *int
	var failure *string
	if outcome.Stats != nil {
		lines = &outcome.Stats.Lines
		characters = &outcome.Stats.Characters
	}
	if outcome.Message != "" {
		failure = &outcome.Message
	}

	tag, err := s.pool.Exec(ctx, query,
		outcome.Status, lines, characters, failure, time.Now().UTC(),
		id, domain.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("%w: settle job: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the job is already terminal or it never existed.
		if _, err := s.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
