// Package kafka publishes turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/turntable/pkg/eventstream"
	"github.com/papercomputeco/turntable/pkg/logger"
)

// messageWriter is the part of kafka-go's Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the configuration for a Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic receives every turn event.
	Topic string

	// ClientID is sent as a message header so consumers can tell
	// publishers apart. Optional.
	ClientID string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Publisher publishes turn events to Kafka. Messages are keyed by
// conversation id so a conversation's turns stay ordered in one partition.
type Publisher struct {
	writer   messageWriter
	topic    string
	clientID string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(c *Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, c), nil
}

func newPublisher(w messageWriter, c *Config) *Publisher {
	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Publisher{
		writer:   w,
		topic:    c.Topic,
		clientID: c.ClientID,
		timeout:  timeout,
		logger:   l,
	}
}

// PublishTurn writes one event and waits for the brokers to acknowledge it.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling turn event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Turn.ConversationID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}
	if p.clientID != "" {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: "client_id", Value: []byte(p.clientID)})
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing turn event to %s: %w", p.topic, err)
	}

	p.logger.Debug("published turn event",
		"topic", p.topic,
		"event_id", event.EventID,
		"conversation_id", event.Turn.ConversationID,
	)
	return nil
}

// Close flushes pending writes and closes the connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
