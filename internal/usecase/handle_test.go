package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mockbroker "github.com/tallyq/tally/internal/broker/mock"
	"github.com/tallyq/tally/internal/domain"
	mockrepo "github.com/tallyq/tally/internal/repository/mock"
)

func submitTestJob(t *testing.T, store *mockrepo.JobStore, content []byte) *JobHandle {
	t.Helper()
	uc := NewSubmitJobUsecase(store, mockbroker.NewPublisher(), zap.NewNop())
	handle, err := uc.Execute(context.Background(), content)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return handle
}

func TestHandle_StatusPending(t *testing.T) {
	store := mockrepo.NewJobStore()
	handle := submitTestJob(t, store, []byte("hello"))

	status, err := handle.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", status.Status)
	}
	// "not yet available" must be distinguishable from "available and
	// empty": a pending status carries no result at all.
	if status.Result != nil {
		t.Error("expected nil result while PENDING")
	}
	if status.Failure != "" {
		t.Error("expected no failure message while PENDING")
	}
}

func TestHandle_ResultNotReady(t *testing.T) {
	store := mockrepo.NewJobStore()
	handle := submitTestJob(t, store, []byte("hello"))

	_, err := handle.Result(context.Background())
	if !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestHandle_SuccessfulLifecycle(t *testing.T) {
	store := mockrepo.NewJobStore()
	handle := submitTestJob(t, store, []byte("a\nb\nc"))

	ok, err := handle.Successful(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected not successful while PENDING")
	}

	// Worker settles the job.
	settled, err := store.Settle(context.Background(), handle.ID(), domain.Success(domain.Stats{Lines: 2, Characters: 5}))
	if err != nil || !settled {
		t.Fatalf("settle failed: settled=%v err=%v", settled, err)
	}

	ok, err = handle.Successful(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected successful after settlement")
	}

	stats, err := handle.Result(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 2 || stats.Characters != 5 {
		t.Errorf("expected {2, 5}, got %+v", stats)
	}
}

func TestHandle_FailedJob(t *testing.T) {
	store := mockrepo.NewJobStore()
	handle := submitTestJob(t, store, []byte("x"))

	if _, err := store.Settle(context.Background(), handle.ID(), domain.Failure("failed to decode payload")); err != nil {
		t.Fatalf("settle: %v", err)
	}

	ok, err := handle.Successful(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("a FAILURE job must not report successful")
	}

	_, err = handle.Result(context.Background())
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *FailedError, got %v", err)
	}
	if failed.Message != "failed to decode payload" {
		t.Errorf("unexpected failure message: %q", failed.Message)
	}
}

// A handle reconstructed from the bare id behaves identically to the
// one returned at submit time.
func TestHandle_ReconstructedFromID(t *testing.T) {
	store := mockrepo.NewJobStore()
	original := submitTestJob(t, store, []byte("hello\n"))

	store.Settle(context.Background(), original.ID(), domain.Success(domain.Stats{Lines: 1, Characters: 6}))

	rebuilt := NewHandleFactory(store).For(original.ID())
	stats, err := rebuilt.Result(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 1 || stats.Characters != 6 {
		t.Errorf("expected {1, 6}, got %+v", stats)
	}
}

func TestHandle_UnknownJob(t *testing.T) {
	store := mockrepo.NewJobStore()
	handle := NewJobHandle(store, uuid.New())

	_, err := handle.Status(context.Background())
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
