package mq

import (
	"context"
	"fmt"

	"github.com/yummy-rest/apiserver/config"
)

// Message is a broker-agnostic payload. Key routes the message on brokers
// that support it; domain events use the event type.
type Message struct {
	ID         string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend broadcasts messages on a named channel. Every subscriber sees
// every message published after it subscribed.
type Backend interface {
	Publish(ctx context.Context, channel string, msg Message) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends msg to channel and returns the broker's message id.
func (m *MQ) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	return m.backend.Publish(ctx, channel, msg)
}

// Subscribe blocks delivering messages from channel until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}

// Open connects to the broker named by cfg.Driver. It returns nil when no
// driver is configured.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "rabbitmq":
		broker, err := NewRabbitMQBroker(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return New(broker), nil
	case "pubsub":
		broker, err := NewPubSubBroker(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return New(broker), nil
	default:
		return nil, fmt.Errorf("unknown mq driver %q", cfg.Driver)
	}
}
