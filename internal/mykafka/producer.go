package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 5 * time.Second
	queueTimeout = time.Second
	batchTimeout = 10 * time.Millisecond
	batchSize    = 100
)

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event Event) error
	Close() error
}

// Producer writes asynchronously: PublishEvent waits at most queueTimeout for
// partition metadata and then only queues the message. Delivery failures are
// logged once the batch completes.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	l := logger.With("component", "kafka", "topic", topic)
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           writeTimeout,
			BatchTimeout:           batchTimeout,
			BatchSize:              batchSize,
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					l.Warn("kafka_delivery_failed", "messages", len(messages), "error", err)
				}
			},
		},
	}
}

func newMessage(key string, event Event) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

func (p *Producer) PublishEvent(ctx context.Context, key string, event Event) error {
	msg, err := newMessage(key, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queueTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

// Close flushes queued messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishEvent(context.Context, string, Event) error { return nil }
func (Noop) Close() error                                     { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) PublishEvent(_ context.Context, _ string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
