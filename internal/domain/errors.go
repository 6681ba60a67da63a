package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotReady is returned when a result is requested for a job
	// that has not reached a terminal state yet.
	ErrNotReady = errors.New("job result not ready")

	// ErrPayloadTooLarge is returned when the submitted content exceeds the size limit.
	ErrPayloadTooLarge = errors.New("content exceeds maximum size (1MB)")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message broker")

	// ErrStoreUnavailable is returned when the result backend is unreachable.
	ErrStoreUnavailable = errors.New("job store is currently unavailable")

	// ErrUnknownTask is returned when a delivered job names a task that
	// is not registered with the worker.
	ErrUnknownTask = errors.New("unknown task name")
)
