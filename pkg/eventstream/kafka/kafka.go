// Package kafka provides a Kafka-backed event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// DefaultTopic is the topic memory lifecycle events are written to.
const DefaultTopic = "engram.memories"

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic.
	// Defaults to DefaultTopic if empty.
	Topic string
}

// Publisher implements eventstream.Publisher over a Kafka topic. Events for
// the same memory ID hash to the same partition so per-record ordering
// holds.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher. The underlying writer dials
// lazily, so a dead broker surfaces on the first Publish rather than here.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka event publisher configured",
		"brokers", c.Brokers,
		"topic", topic,
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Publish writes one event to the topic.
func (p *Publisher) Publish(ctx context.Context, evt eventstream.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := kafkago.Message{Value: value}
	if evt.MemoryID != "" {
		msg.Key = []byte(evt.MemoryID)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event to kafka: %w", err)
	}

	p.logger.Debug("published event",
		"kind", evt.Kind,
		"memory_id", evt.MemoryID,
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
