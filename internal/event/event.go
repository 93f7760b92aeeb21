// Package event publishes domain events to other systems.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultExchange is the topic exchange events are routed through. The
// routing key is the event topic.
const DefaultExchange = "tutorly.events"

type Config struct {
	// URL is an amqp:// connection string. Empty selects the no-op publisher.
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// Envelope is the message body for every event.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher sends events. It satisfies session.Publisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// New returns an AMQP publisher when cfg.URL is set, otherwise a publisher
// that only logs at debug level.
func New(cfg Config, log *zap.Logger) (Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.URL == "" {
		return &Nop{log: log}, nil
	}
	return Dial(cfg, log)
}

// Nop discards events.
type Nop struct {
	log *zap.Logger
}

func (n *Nop) Publish(_ context.Context, topic string, _ any) error {
	if n.log != nil {
		n.log.Debug("event dropped, no broker configured", zap.String("topic", topic))
	}
	return nil
}

func (n *Nop) Close() error { return nil }

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON envelopes to a topic exchange.
type AMQPPublisher struct {
	exchange string
	log      *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// Dial connects to the broker and declares the exchange.
func Dial(cfg Config, log *zap.Logger) (*AMQPPublisher, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info("event publisher connected", zap.String("exchange", exchange))
	p := newAMQPPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, exchange string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{exchange: exchange, log: log, now: time.Now, ch: ch}
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(Envelope{Type: topic, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("publish %s: publisher closed", topic)
	}
	err = p.ch.Publish(p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debug("event published", zap.String("topic", topic), zap.Int("bytes", len(body)))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}
