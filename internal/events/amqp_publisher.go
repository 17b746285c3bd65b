package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/config"
)

// AMQPPublisher forwards events to a durable topic exchange with routing
// key "reservation.<event>".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange. It returns
// nil without error when no URL is configured.
func NewAMQPPublisher(cfg config.AMQPConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		logger.Warn("AMQP_URL not provided; events stay in-process")
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	logger.Info("connected to amqp", zap.String("exchange", cfg.Exchange))
	return &AMQPPublisher{conn: conn, channel: ch, exchange: cfg.Exchange, logger: logger}, nil
}

// RoutingKey returns the topic routing key for an event type.
func RoutingKey(t EventType) string {
	return "reservation." + strings.TrimPrefix(string(t), "reservation_")
}

// Handle publishes one event. It satisfies EventHandler.
func (p *AMQPPublisher) Handle(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		p.logger.Warn("amqp publish failed", zap.String("event", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
