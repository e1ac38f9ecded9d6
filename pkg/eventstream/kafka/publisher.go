// Package kafka publishes memory lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// DefaultTopic is the topic memory events are published to.
const DefaultTopic = "engram.memory.events"

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic.
	Topic string
}

// Publisher implements eventstream.Publisher on a Kafka writer.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Publish sends a memory event keyed by record id, so events for one record
// preserve partition order.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding memory event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RecordID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing memory event: %w", err)
	}

	p.logger.Debug("published memory event",
		zap.String("event_type", event.EventType),
		zap.String("record_id", event.RecordID),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
