package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "pos.changes"
	confirmTimeout  = 5 * time.Second
)

// confirmation is the broker answer to one delivery.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type sendFunc func(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error)

// AMQPPublisher forwards change events to a RabbitMQ topic exchange with
// publisher confirms. Routing keys are branch.<branch_id>.<kind>.<op>.
// Each delivery waits on its own confirmation, so a late ack can not be read
// by a later publish.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	send     sendFunc
	timeout  time.Duration
	mu       sync.Mutex
	exchange string
	log      *slog.Logger
}

func DialAMQP(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	send := func(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error) {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
		if err != nil {
			return nil, err
		}
		return dc, nil
	}
	return &AMQPPublisher{conn: conn, ch: ch, send: send, timeout: confirmTimeout, exchange: exchange, log: log}, nil
}

func RoutingKey(e Event) string {
	return fmt.Sprintf("branch.%s.%s.%s", e.BranchID, e.Kind, e.Op)
}

func (p *AMQPPublisher) Publish(ctx context.Context, events ...Event) {
	for _, e := range events {
		if err := p.publish(ctx, e); err != nil {
			p.log.Warn("change event not forwarded", "kind", e.Kind, "id", e.ID, "error", err)
		}
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	p.mu.Lock()
	conf, err := p.send(ctx, RoutingKey(e), amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    e.At,
		Type:         string(e.Kind),
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		return err
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}

func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
