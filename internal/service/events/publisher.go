package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
)

const DefaultExchange = "postboard.events"

// Publisher delivers single event to the broker
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// NoopPublisher is used when broker is not configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.Event) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

// AMQPPublisher publishes events to topic exchange
// Event type is the routing key, so consumers may bind to "post.*" etc.
type AMQPPublisher struct {
	exchange string

	mu   sync.Mutex // amqp channel is not safe for concurrent publishing
	conn *amqp.Connection
	ch   *amqp.Channel

	logger logger.Logger
}

func NewAMQPPublisher(url string, exchange string, l logger.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare failed: %w", err)
	}

	return &AMQPPublisher{
		exchange: exchange,
		conn:     conn,
		ch:       ch,
		logger:   l,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("can't marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         event.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if err != nil {
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.logger.Warn("Failed to close rabbitmq channel", "error", err)
	}
	return p.conn.Close()
}

// Emitter is the side services see: fire and forget
type Emitter interface {
	Emit(event models.Event) bool
}

// NoopEmitter drops every event
type NoopEmitter struct{}

func (NoopEmitter) Emit(models.Event) bool { return true }
