// Package nats is an alternative broker driver built on core NATS with
// a queue-group subscription. Core NATS does not persist messages, so
// this driver trades the at-least-once guarantee of the RabbitMQ driver
// for operational simplicity; deployments pick it via BROKER_DRIVER.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/broker"
	"github.com/tallyq/tally/internal/domain"
)

const (
	subject    = "tally.jobs"
	queueGroup = "tally-workers"
)

// Connect dials the NATS server with indefinite reconnects.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return nc, nil
}

// ---- Publisher ----

var _ broker.Publisher = (*publisher)(nil)

type publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher creates a NATS publisher on an existing connection.
func NewPublisher(nc *nats.Conn, logger *zap.Logger) broker.Publisher {
	return &publisher{nc: nc, logger: logger}
}

func (p *publisher) Publish(ctx context.Context, job *domain.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("nats: marshal job: %w", err)
	}
	if err := p.nc.Publish(subject, body); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	// Flush so the publish is on the wire before we report success.
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}

	p.logger.Debug("Published job to NATS",
		zap.String("job_id", job.JobID.String()),
		zap.String("subject", subject),
	)
	return nil
}

func (p *publisher) Close() error {
	return p.nc.Drain()
}

// ---- Consumer ----

var _ broker.Consumer = (*consumer)(nil)

type consumer struct {
	nc     *nats.Conn
	logger *zap.Logger
	jobs   chan<- *domain.JobMessage
	sub    *nats.Subscription
}

// NewConsumer creates a NATS queue-group consumer feeding the given
// channel. Members of the same queue group compete for jobs, so exactly
// one worker instance receives a given message.
func NewConsumer(nc *nats.Conn, jobs chan<- *domain.JobMessage, logger *zap.Logger) broker.Consumer {
	return &consumer{nc: nc, logger: logger, jobs: jobs}
}

func (c *consumer) Start(ctx context.Context) error {
	sub, err := c.nc.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		var job domain.Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			c.logger.Error("Failed to unmarshal job",
				zap.Error(err),
				zap.String("body", string(msg.Data)),
			)
			return
		}

		// Core NATS has no broker-side acknowledgement; the callbacks
		// exist so the worker pool can run unchanged across drivers.
		jm := &domain.JobMessage{
			Job:  &job,
			Ack:  func() error { return nil },
			Nack: func(requeue bool) error { return nil },
		}

		select {
		case c.jobs <- jm:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("nats: subscribe: %w", err)
	}
	c.sub = sub

	c.logger.Info("NATS consumer started",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup),
	)

	<-ctx.Done()
	return nil
}

func (c *consumer) Close() error {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			return err
		}
	}
	return nil
}
