package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamMessage is a message read back from a JetStream stream.
type StreamMessage struct {
	Data      []byte
	Sequence  uint64
	Timestamp time.Time
}

// NATSStream is a durable JetStream-backed channel. The coordinator uses it
// for events an operator must see even if nobody was listening when they
// were published.
type NATSStream struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	topic    string
	logger   aqm.Logger
}

type NATSStreamConfig struct {
	URL          string
	StreamName   string
	Topic        string
	ConsumerName string
	MaxAge       time.Duration
	MaxMsgs      int64 // 0 = unlimited
}

// NewNATSStream ensures the stream and its durable consumer exist.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig, logger aqm.Logger) (*NATSStream, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	conn, err := connectNATS(cfg.URL, "coordinator-stream")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: cfg.Topic,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.ConsumerName, err)
	}

	return &NATSStream{
		conn:     conn,
		js:       js,
		stream:   stream,
		consumer: consumer,
		topic:    cfg.Topic,
		logger:   logger,
	}, nil
}

func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Fetch drains up to limit pending messages, acknowledging each one.
func (s *NATSStream) Fetch(ctx context.Context, limit int) ([]StreamMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	batch, err := s.consumer.Fetch(limit, jetstream.FetchMaxWait(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []StreamMessage
	for msg := range batch.Messages() {
		metadata, err := msg.Metadata()
		if err != nil {
			s.logger.Debug("skipping stream message without metadata", "error", err)
			_ = msg.Ack()
			continue
		}

		messages = append(messages, StreamMessage{
			Data:      msg.Data(),
			Sequence:  metadata.Sequence.Stream,
			Timestamp: metadata.Timestamp,
		})
		_ = msg.Ack()
	}

	if err := batch.Error(); err != nil && len(messages) == 0 {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	return messages, nil
}

// Subscribe consumes new messages as they arrive. The topic argument is
// ignored; the consumer is already bound to the stream subject.
func (s *NATSStream) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	_, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("stream handler failed", "topic", s.topic, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	return err
}

func (s *NATSStream) Close() error {
	s.conn.Close()
	return nil
}
