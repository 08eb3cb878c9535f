// Package amqp publishes ledger change notifications to RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	routingKey   string
	logger       *log.Logger
	now          func() time.Time
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchangeName, routingKey string, logger *log.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, exchangeName, routingKey, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchangeName, routingKey string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Discard()
	}
	p := &Publisher{
		channel:      ch,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
		now:          time.Now,
	}
	if err := p.setup(); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Publish sends one change notification as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, c ledger.Change) error {
	msg := NewLedgerChangedMessage(c, p.now())
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Type:         string(msg.Op),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.DebugContext(ctx, "Published ledger change",
		log.FieldOperation, msg.Op,
		log.FieldCount, msg.Count,
		"exchange", p.exchangeName,
		"routing_key", p.routingKey)
	return nil
}

// Notify is a ledger.Observer. Publish failures are logged only.
func (p *Publisher) Notify(ctx context.Context, c ledger.Change) {
	if err := p.Publish(ctx, c); err != nil {
		errType := log.ErrorTypeInternal
		if isConnectionError(err) {
			errType = log.ErrorTypeNetwork
		}
		p.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, log.OpPublish,
			log.FieldErrorType, errType,
			log.FieldError, err)
	}
}

func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
