package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "notifications_fanout"
	contentType     = "application/json"
	appID           = "coordinator"
)

var ErrNack = errors.New("publish NACK from broker")

type Config struct {
	URL      string
	Exchange string
}

// Publisher sends events to a durable fanout exchange and waits for the
// broker confirm of each message. Publishes are serialized so confirms line
// up with the message that produced them.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
	exchange string
	mu       sync.Mutex
	logger   aqm.Logger
}

func NewPublisher(cfg Config, logger aqm.Logger) (*Publisher, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cannot open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("cannot declare exchange %s: %w", cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("cannot enable publisher confirms: %w", err)
	}

	p := &Publisher{
		conn:     conn,
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange: cfg.Exchange,
		logger:   logger,
	}

	logger.Infof("Connected to RabbitMQ exchange %s", cfg.Exchange)
	return p, nil
}

// Publish implements events.Publisher. The topic travels as routing key and
// type; fanout exchanges ignore the key.
func (p *Publisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, message(topic, msg, time.Now()))
	if err != nil {
		return fmt.Errorf("cannot publish to %s: %w", p.exchange, err)
	}

	select {
	case conf, ok := <-p.confirms:
		if !ok {
			return errors.New("rabbitmq channel closed before confirm")
		}
		if !conf.Ack {
			return ErrNack
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

func message(topic string, body []byte, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  contentType,
		Type:         topic,
		AppId:        appID,
		Timestamp:    now.UTC(),
		Body:         body,
	}
}
