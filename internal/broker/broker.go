// Package broker defines the job channel between submitters and
// workers. Drivers live in subpackages; the core treats the broker
// address as an opaque connection handle supplied by configuration.
package broker

import (
	"context"

	"github.com/tallyq/tally/internal/domain"
)

// Publisher enqueues jobs for asynchronous execution. Publish returns
// after the broker has durably recorded the job, never after execution.
type Publisher interface {
	Publish(ctx context.Context, job *domain.Job) error
	Close() error
}

// Consumer delivers jobs to a worker process. Deliveries carry manual
// acknowledgement callbacks; an unacked delivery is redelivered, so the
// channel is at-least-once and executors must tolerate duplicates.
type Consumer interface {
	// Start blocks until the context is cancelled, pushing deliveries
	// to the channel given at construction time.
	Start(ctx context.Context) error
	Close() error
}
