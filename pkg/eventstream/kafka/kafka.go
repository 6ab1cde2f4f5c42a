// Package kafka publishes chatbot events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/crmchat/pkg/eventstream"
)

// DefaultTopic receives every event type; consumers switch on the
// event_type header.
const DefaultTopic = "crmchat.events"

// Config holds the Kafka connection settings.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Zero means 10s.
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements eventstream.Publisher with a kafka-go writer.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a publisher. No connection is made until the first
// event is written.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka publisher configured", "brokers", c.Brokers, "topic", c.Topic)
	return newPublisher(w, c.WriteTimeout, logger), nil
}

func newPublisher(w messageWriter, timeout time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, timeout: timeout, logger: logger}
}

// PublishQueryAnswered keys the message by conversation so a conversation's
// events stay ordered within one partition.
func (p *Publisher) PublishQueryAnswered(ctx context.Context, event *eventstream.QueryAnsweredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	key := event.ConversationID
	if key == "" {
		key = event.EventID
	}
	return p.publish(ctx, key, event.Envelope, event)
}

func (p *Publisher) PublishIndexBuilt(ctx context.Context, event *eventstream.IndexBuiltEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.EventID, event.Envelope, event)
}

func (p *Publisher) publish(ctx context.Context, key string, env eventstream.Envelope, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", env.EventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", env.EventType, err)
	}

	p.logger.Debug("published event", "event_type", env.EventType, "event_id", env.EventID)
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
