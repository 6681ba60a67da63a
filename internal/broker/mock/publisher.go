package mock

import (
	"context"
	"sync"

	"github.com/tallyq/tally/internal/broker"
	"github.com/tallyq/tally/internal/domain"
)

var _ broker.Publisher = (*Publisher)(nil)

// Publisher is a test double for broker.Publisher that records
// published jobs.
type Publisher struct {
	mu sync.Mutex

	PublishFn func(ctx context.Context, job *domain.Job) error

	Published []*domain.Job
	Closed    bool
}

// NewPublisher creates a mock publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (m *Publisher) Publish(ctx context.Context, job *domain.Job) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, job)
	return nil
}

func (m *Publisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
