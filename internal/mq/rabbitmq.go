package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yummy-rest/apiserver/config"
)

const (
	exchangeKind = "topic"
	bindAll      = "#"
)

// RabbitMQBroker maps each channel onto a topic exchange. Each subscriber
// gets its own exclusive queue bound to every key.
type RabbitMQBroker struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	durable       bool
	prefetchCount int

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQBroker dials RabbitMQ and opens a channel from config.
func NewRabbitMQBroker(cfg config.RabbitMQConfig) (*RabbitMQBroker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQBroker{
		conn:          conn,
		channel:       ch,
		durable:       cfg.Durable,
		prefetchCount: cfg.PrefetchCount,
		declared:      make(map[string]bool),
	}, nil
}

func (r *RabbitMQBroker) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	publishing := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   id,
		Type:        msg.Key,
		Timestamp:   time.Now().UTC(),
		Headers:     attributesToHeaders(msg.Attributes),
		Body:        msg.Data,
	}
	if r.durable {
		publishing.DeliveryMode = amqp.Persistent
	}

	if err := r.channel.PublishWithContext(ctx, channel, msg.Key, false, false, publishing); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return id, nil
}

func (r *RabbitMQBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if err := r.declareExchange(channel); err != nil {
		return err
	}

	queue, err := r.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(queue.Name, bindAll, channel, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if r.prefetchCount > 0 {
		if err := r.channel.Qos(r.prefetchCount, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	consumerTag := "tail-" + uuid.NewString()
	deliveries, err := r.channel.Consume(queue.Name, consumerTag, false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Key:        delivery.RoutingKey,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQBroker) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// declareExchange declares the exchange for channel once per broker.
func (r *RabbitMQBroker) declareExchange(channel string) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared[channel] {
		return nil
	}
	if err := r.channel.ExchangeDeclare(channel, exchangeKind, r.durable, !r.durable, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", channel, err)
	}
	r.declared[channel] = true
	return nil
}

func attributesToHeaders(attrs map[string]string) amqp.Table {
	if len(attrs) == 0 {
		return nil
	}
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	return headers
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
