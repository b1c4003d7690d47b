// Package events publishes executed-mutation events to RabbitMQ so
// downstream consumers (analytics, notification fan-out) can react to tag
// vocabulary changes without polling the upstream service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultExchangeName is the exchange mutation events are published to
	DefaultExchangeName = "tag_commands"
	// routingKey routes all command events for now; consumers filter by type
	routingKey = "command.executed"
)

// CommandEvent describes one executed mutation
type CommandEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Intent    string    `json:"intent"`
	TaskID    string    `json:"task_id,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCommandEvent builds an event with a fresh id and timestamp
func NewCommandEvent(userID, intent, taskID string, tags []string) CommandEvent {
	return CommandEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Intent:    intent,
		TaskID:    taskID,
		Tags:      tags,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher publishes command events to RabbitMQ. A nil *Publisher is valid
// and publishes nothing, so event publishing stays optional wiring.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares the exchange
func NewPublisher(amqpURL string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		DefaultExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: DefaultExchangeName,
		logger:   logger,
	}, nil
}

// Publish sends one event. Failures are logged, not surfaced: event delivery
// is best-effort and must never fail a user command.
func (p *Publisher) Publish(ctx context.Context, ev CommandEvent) {
	if p == nil {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed_to_encode_command_event", zap.Error(err))
		}
		return
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID.String(),
			Timestamp:    ev.Timestamp,
		},
	)
	if err != nil && p.logger != nil {
		p.logger.Warn("failed_to_publish_command_event",
			zap.String("intent", ev.Intent),
			zap.Error(err),
		)
	}
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
