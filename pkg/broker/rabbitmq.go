// Package broker publishes JSON messages to a RabbitMQ topic exchange.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gocomet/ride-booking/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 3 * time.Second

// ErrClosed is returned when publishing on a closed broker
var ErrClosed = errors.New("amqp connection closed")

// Config holds RabbitMQ connection settings
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
	Exchange string
}

// URL renders the AMQP connection URL
func (c Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.VHost,
	}
	return u.String()
}

// channel is the part of *amqp.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// RabbitMQ publishes to one durable topic exchange. It reconnects lazily on
// the next publish after the connection drops.
type RabbitMQ struct {
	cfg    Config
	logger *logger.Logger
	dial   func() (*amqp.Connection, channel, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// New connects and declares the exchange
func New(cfg Config, log *logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, logger: log}
	r.dial = r.dialAMQP
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("rabbit connect: %w", err)
	}
	return r, nil
}

func newWithChannel(cfg Config, log *logger.Logger, ch channel) *RabbitMQ {
	r := &RabbitMQ{cfg: cfg, logger: log, ch: ch}
	r.dial = func() (*amqp.Connection, channel, error) { return nil, nil, ErrClosed }
	return r
}

func (r *RabbitMQ) dialAMQP() (*amqp.Connection, channel, error) {
	conn, err := amqp.Dial(r.cfg.URL())
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func (r *RabbitMQ) connect() error {
	conn, ch, err := r.dial()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("declare exchange: %w", err)
	}
	r.conn = conn
	r.ch = ch
	return nil
}

// PublishJSON marshals msg and publishes it with routingKey
func (r *RabbitMQ) PublishJSON(ctx context.Context, routingKey string, msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil || r.ch.IsClosed() {
		r.logger.Warn("AMQP channel closed, reconnecting", logger.String("exchange", r.cfg.Exchange))
		if err := r.connect(); err != nil {
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
	}

	pubctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return r.ch.PublishWithContext(pubctx, r.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the channel and connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}
