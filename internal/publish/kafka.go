package publish

import (
	"context"
	"errors"
	"fmt"

	kafka "github.com/segmentio/kafka-go"
)

// Publisher is the narrow blocking-publish contract PublicationEngine
// depends on: one message, keyed by portfolioId so same-key records land in
// the same downstream partition and preserve send order.
type Publisher interface {
	Publish(ctx context.Context, portfolioID string, payload []byte) error
}

// KafkaPublisher wraps a kafka-go writer configured for idempotent,
// all-replica-acked, single-in-flight publication — the closest kafka-go
// gets to the spec's "ack policy = all-replicas, idempotent producer,
// in-flight-per-connection = 1" requirement (kafka-go has no native
// enable.idempotence flag; see DESIGN.md).
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1, // retries are the dispatcher's job, not the writer's
			Async:        false,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, portfolioID string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(portfolioID),
		Value: payload,
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrPublishTimeout, err)
	}

	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	return err
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
