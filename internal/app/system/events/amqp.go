// internal/app/system/events/amqp.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const routingKey = "notifications"

// AMQP is a RabbitMQ transport: a durable direct exchange bound to a
// durable queue.
type AMQP struct {
	conn     *amqp.Connection
	pub      *amqp.Channel
	exchange string
	queue    string
	log      *zap.Logger
}

// DialAMQP connects to url and declares exchange and queue.
func DialAMQP(url, exchange, queue string, logger *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declare(ch, exchange, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	logger.Info("amqp event transport ready",
		zap.String("exchange", exchange),
		zap.String("queue", queue))
	return &AMQP{conn: conn, pub: ch, exchange: exchange, queue: queue, log: logger}, nil
}

func declare(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q: %w", queue, err)
	}
	return nil
}

// Publish sends e as a persistent JSON message.
func (a *AMQP) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return a.pub.PublishWithContext(ctx,
		a.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Type:         string(e.Kind),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
		})
}

// Subscribe consumes the queue on its own channel with manual acks.
// Undecodable messages are dropped.
func (a *AMQP) Subscribe(ctx context.Context) (<-chan Message, error) {
	ch, err := a.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	); err != nil {
		ch.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(
		a.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					a.log.Warn("amqp delivery channel closed")
					return
				}
				var e Event
				if err := json.Unmarshal(d.Body, &e); err != nil {
					a.log.Warn("dropping undecodable event", zap.String("message_id", d.MessageId), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				msg := Message{
					Event: e,
					Ack:   func() error { return d.Ack(false) },
					Nack:  func(requeue bool) error { return d.Nack(false, requeue) },
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// Check returns ErrClosed once the broker connection or the publishing
// channel has gone away.
func (a *AMQP) Check() error {
	if a.conn.IsClosed() || a.pub.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close closes the publishing channel and the connection.
func (a *AMQP) Close() error {
	if err := a.pub.Close(); err != nil && err != amqp.ErrClosed {
		a.log.Warn("amqp channel close", zap.Error(err))
	}
	return a.conn.Close()
}
