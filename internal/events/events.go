// Package events publishes domain events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yummy-rest/apiserver/internal/mq"
)

const (
	UserRegistered  = "user.registered"
	UserDeleted     = "user.deleted"
	PasswordReset   = "user.password_reset"
	LoggedOut       = "user.logged_out"
	CategoryCreated = "category.created"
	CategoryUpdated = "category.updated"
	CategoryDeleted = "category.deleted"
	RecipeCreated   = "recipe.created"
	RecipeUpdated   = "recipe.updated"
	RecipeDeleted   = "recipe.deleted"
	CategoryExport  = "category.exported"
)

// Event describes something that happened to a resource.
type Event struct {
	Type       string    `json:"type"`
	Actor      string    `json:"actor"`
	ResourceID int       `json:"resource_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher receives domain events. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// MQPublisher encodes events as JSON and sends them to one channel.
type MQPublisher struct {
	mq      *mq.MQ
	channel string
	logger  *slog.Logger
}

// NewMQPublisher constructs a Publisher that sends events to channel.
func NewMQPublisher(m *mq.MQ, channel string, logger *slog.Logger) *MQPublisher {
	return &MQPublisher{mq: m, channel: channel, logger: logger}
}

func (p *MQPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WarnContext(ctx, "encode event failed", "type", event.Type, "error", err)
		return
	}
	id, err := p.mq.Publish(ctx, p.channel, mq.Message{
		Key:        event.Type,
		Data:       data,
		Attributes: map[string]string{"type": event.Type},
	})
	if err != nil {
		p.logger.WarnContext(ctx, "publish event failed", "type", event.Type, "error", err)
		return
	}
	p.logger.DebugContext(ctx, "event published", "type", event.Type, "message_id", id)
}

// Tail logs every event on channel until ctx is cancelled.
func Tail(ctx context.Context, m *mq.MQ, channel string, logger *slog.Logger) error {
	return m.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Undecodable payloads are acked so they are not redelivered forever.
			logger.WarnContext(ctx, "skipping malformed event", "message_id", msg.ID, "error", err)
			return nil
		}
		logger.InfoContext(ctx, "event",
			"type", event.Type,
			"actor", event.Actor,
			"resource_id", event.ResourceID,
			"name", event.Name,
			"occurred_at", event.OccurredAt,
		)
		return nil
	})
}
