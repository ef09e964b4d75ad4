package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirm chan bool

func (f fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-f:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fakeBroker hands out one confirmation per delivery and records routing keys.
type fakeBroker struct {
	mu       sync.Mutex
	keys     []string
	confirms []fakeConfirm
	fail     error
}

func (b *fakeBroker) send(_ context.Context, key string, _ amqp.Publishing) (confirmation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	c := make(fakeConfirm, 1)
	b.keys = append(b.keys, key)
	b.confirms = append(b.confirms, c)
	return c, nil
}

func (b *fakeBroker) confirm(i int, ack bool) {
	b.mu.Lock()
	c := b.confirms[i]
	b.mu.Unlock()
	c <- ack
}

func newTestPublisher(b *fakeBroker) *AMQPPublisher {
	return &AMQPPublisher{
		send:     b.send,
		timeout:  50 * time.Millisecond,
		exchange: DefaultExchange,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRoutingKey(t *testing.T) {
	branch := uuid.New()
	e := NewEvent(KindOrder, OpUpdate, uuid.New(), branch)
	assert.Equal(t, "branch."+branch.String()+".order.update", RoutingKey(e))
}

func TestAMQPConfirmsMatchTheirDelivery(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(b)
	e := NewEvent(KindOrder, OpInsert, uuid.New(), uuid.New())

	// first delivery is never confirmed in time
	assert.ErrorIs(t, p.publish(context.Background(), e), context.DeadlineExceeded)
	b.confirm(0, true) // late ack for the first delivery

	done := make(chan error, 1)
	go func() { done <- p.publish(context.Background(), e) }()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.confirms) == 2
	}, time.Second, time.Millisecond)
	b.confirm(1, false)
	assert.EqualError(t, <-done, "publish NACK from broker", "the late ack of the first delivery is not reused")

	go func() { done <- p.publish(context.Background(), e) }()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.confirms) == 3
	}, time.Second, time.Millisecond)
	b.confirm(2, true)
	assert.NoError(t, <-done)
	assert.Len(t, b.keys, 3)
}

func TestAMQPPublishErrorIsLogged(t *testing.T) {
	b := &fakeBroker{fail: errors.New("channel closed")}
	p := newTestPublisher(b)
	assert.EqualError(t, p.publish(context.Background(), NewEvent(KindMenu, OpDelete, uuid.New(), uuid.New())), "channel closed")

	// Publish never blocks the caller on a broken broker
	p.Publish(context.Background(), NewEvent(KindMenu, OpDelete, uuid.New(), uuid.New()))
}
