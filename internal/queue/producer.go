// Package queue carries lifecycle events and commands over Kafka.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"action-lifecycle-service/internal/modal"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Producer writes lifecycle events keyed by action ID, so every event of
// one action lands on the same partition in commit order.
type Producer struct {
	writer  messageWriter
	timeout time.Duration
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: no brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka producer: topic is required")
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
	}
	return newProducer(w), nil
}

func newProducer(w messageWriter) *Producer {
	return &Producer{writer: w, timeout: 3 * time.Second}
}

func (p *Producer) Close() error { return p.writer.Close() }

// Publish implements engine.Publisher.
func (p *Producer) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	return p.publishJSON(ctx, evt.ActionID, evt)
}

// PublishCommand enqueues a command envelope for the consumer.
func (p *Producer) PublishCommand(ctx context.Context, env CommandMessage) error {
	return p.publishJSON(ctx, env.ActionID, env)
}

func (p *Producer) publishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}
