package rabbitmq

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/domain"
)

type fakeConfirmation struct {
	acked bool
	err   error
	// when set, WaitContext blocks until the context expires
	block bool
}

func (f fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	if f.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.acked, f.err
}

type fakeConfirmChannel struct {
	published []amqp.Publishing
	next      func() confirmation
}

func (f *fakeConfirmChannel) publishWithConfirm(ctx context.Context, msg amqp.Publishing) (confirmation, error) {
	f.published = append(f.published, msg)
	return f.next(), nil
}

func testJob() *domain.Job {
	return &domain.Job{
		JobID:  uuid.New(),
		Task:   "file_stats",
		Status: domain.StatusPending,
	}
}

// Sequential publishes must each succeed on their own confirmation; a
// confirmation for one message must never be consumed (or blocked) by
// the bookkeeping of an earlier one.
func TestPublish_SequentialConfirms(t *testing.T) {
	ch := &fakeConfirmChannel{
		next: func() confirmation { return fakeConfirmation{acked: true} },
	}
	p := &publisher{confirms: ch, logger: zap.NewNop()}

	for i := 0; i < 10; i++ {
		if err := p.Publish(context.Background(), testJob()); err != nil {
			t.Fatalf("publish %d: unexpected error: %v", i, err)
		}
	}
	if len(ch.published) != 10 {
		t.Errorf("expected 10 publishes, got %d", len(ch.published))
	}
}

func TestPublish_BrokerNack(t *testing.T) {
	ch := &fakeConfirmChannel{
		next: func() confirmation { return fakeConfirmation{acked: false} },
	}
	p := &publisher{confirms: ch, logger: zap.NewNop()}

	if err := p.Publish(context.Background(), testJob()); err == nil {
		t.Error("expected error when the broker nacks the message")
	}
}

func TestPublish_ConfirmationTimeout(t *testing.T) {
	ch := &fakeConfirmChannel{
		next: func() confirmation { return fakeConfirmation{block: true} },
	}
	p := &publisher{confirms: ch, logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, testJob())
	if err == nil {
		t.Fatal("expected error when the confirmation never arrives")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("publish blocked %v, expected the context deadline to cut it short", elapsed)
	}
}

func TestPublish_NoChannel(t *testing.T) {
	p := &publisher{logger: zap.NewNop()}

	if err := p.Publish(context.Background(), testJob()); err == nil {
		t.Error("expected error while the channel is down")
	}
}

func TestPublish_SetsMessageMetadata(t *testing.T) {
	ch := &fakeConfirmChannel{
		next: func() confirmation { return fakeConfirmation{acked: true} },
	}
	p := &publisher{confirms: ch, logger: zap.NewNop()}

	job := testJob()
	if err := p.Publish(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := ch.published[0]
	if msg.MessageId != job.JobID.String() {
		t.Errorf("expected message id %s, got %s", job.JobID, msg.MessageId)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Error("expected persistent delivery mode")
	}
	if msg.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", msg.ContentType)
	}
}
