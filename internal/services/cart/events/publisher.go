// Package events publishes cart lifecycle notifications to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// RoutingKeySaved is published after a cart is persisted.
	RoutingKeySaved = "cart.saved"
	// RoutingKeyDeleted is published after a cart is removed.
	RoutingKeyDeleted = "cart.deleted"
)

// Config selects the broker. An empty URL disables publication.
type Config struct {
	URL      string `env:"CARTSTORE_AMQP_URL"`
	Exchange string `env:"CARTSTORE_AMQP_EXCHANGE" envDefault:"cart.events"`
}

// Event is the JSON body of every message.
type Event struct {
	Type       string    `json:"type"`
	CartID     string    `json:"cartId"`
	ItemCount  int       `json:"itemCount"`
	Total      float64   `json:"total"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends cart events. A nil *Publisher drops every event.
type Publisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	now      func() time.Time
}

// Dial connects to cfg.URL and declares the exchange. It returns a nil
// publisher and no error when cfg.URL is empty.
func Dial(cfg Config) (*Publisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, nil
	}
	exchange := exchangeName(cfg.Exchange)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already open channel.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchangeName(exchange), now: time.Now}
}

func exchangeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "cart.events"
	}
	return name
}

// CartSaved publishes a cart.saved event.
func (p *Publisher) CartSaved(ctx context.Context, cart domain.Cart) error {
	return p.publish(ctx, RoutingKeySaved, Event{
		Type:      RoutingKeySaved,
		CartID:    cart.ID,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total,
	})
}

// CartDeleted publishes a cart.deleted event.
func (p *Publisher) CartDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, RoutingKeyDeleted, Event{Type: RoutingKeyDeleted, CartID: id})
}

func (p *Publisher) publish(ctx context.Context, key string, event Event) error {
	if p == nil || p.ch == nil {
		return nil
	}
	event.OccurredAt = p.now().UTC()
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", key, err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
