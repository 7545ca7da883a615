package streamadapter

import (
	"context"
	"sync/atomic"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaAdapter wraps a kafka-go consumer-group reader, following the
// teacher's internal/kafka.Consumer shape but exposing explicit offset
// commit and advisory pause instead of auto-commit.
type KafkaAdapter struct {
	reader *kafka.Reader
	logger *zap.Logger

	paused atomic.Bool
}

func NewKafkaAdapter(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaAdapter {
	return &KafkaAdapter{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		logger: logger,
	}
}

// kafkaHandle adapts kafka.Message into the opaque AckHandle the rest of the
// pipeline carries around; StoreOffset unwraps it back.
type kafkaHandle struct {
	msg kafka.Message
}

func (a *KafkaAdapter) Run(ctx context.Context, fn Handler) error {
	for {
		if a.paused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}

		m, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := fn(ctx, m.Value, kafkaHandle{msg: m}); err != nil {
			a.logger.Error("streamadapter: handler returned error", zap.Error(err))
		}
	}
}

func (a *KafkaAdapter) StoreOffset(ctx context.Context, handle AckHandle) error {
	h, ok := handle.(kafkaHandle)
	if !ok {
		// Admin-replay injections carry a nil handle; offset commit is a
		// documented no-op for those.
		return nil
	}
	return a.reader.CommitMessages(ctx, h.msg)
}

// Pause stops the fetch loop from calling FetchMessage. kafka-go's consumer
// group protocol has no server-side pause, so this is the "don't drain the
// transport buffer" strategy the spec calls for: the broker eventually sees
// this consumer stop fetching and backs off on its own.
func (a *KafkaAdapter) Pause() { a.paused.Store(true) }

func (a *KafkaAdapter) Resume() { a.paused.Store(false) }

func (a *KafkaAdapter) Close() error { return a.reader.Close() }
