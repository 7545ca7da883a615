package ingestbuffer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrCallNotPermitted is surfaced by Persister when the circuit breaker
// guarding PersistenceCore is open. The flush loop interprets it as: pause
// the stream, sleep a backoff, retry the same batch.
var ErrCallNotPermitted = errors.New("ingestbuffer: call not permitted, circuit open")

// Persister is the narrow view of PersistenceCore the buffer depends on.
type Persister interface {
	PersistBatch(ctx context.Context, batch []PendingMessage) error
}

// Pauser is the narrow view of streamadapter.Adapter the buffer depends on
// for backpressure.
type Pauser interface {
	Pause()
	Resume()
}

// QuarantineSink absorbs messages that cannot be enqueued during shutdown.
type QuarantineSink interface {
	QuarantineRaw(ctx context.Context, raw []byte, reason string)
}

// Buffer is a bounded, single-consumer queue of PendingMessage. Enqueue is
// called from the stream handler goroutine and from the admin replay
// handler; the flush loop runs on its own dedicated goroutine so that flush
// order always matches enqueue order, which for stream messages matches
// source-stream order.
type Buffer struct {
	ch chan PendingMessage

	enqueueWait   time.Duration
	flushInterval time.Duration
	batchMax      int

	sizer      *AdaptiveBatchSizer
	persister  Persister
	pauser     Pauser
	quarantine QuarantineSink
	logger     *zap.Logger

	shuttingDown atomic.Bool
	backoff      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewBuffer(
	capacity int,
	enqueueWait time.Duration,
	flushInterval time.Duration,
	batchMax int,
	sizer *AdaptiveBatchSizer,
	persister Persister,
	pauser Pauser,
	quarantine QuarantineSink,
	logger *zap.Logger,
) *Buffer {
	return &Buffer{
		ch:            make(chan PendingMessage, capacity),
		enqueueWait:   enqueueWait,
		flushInterval: flushInterval,
		batchMax:      batchMax,
		sizer:         sizer,
		persister:     persister,
		pauser:        pauser,
		quarantine:    quarantine,
		logger:        logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Enqueue attempts a bounded, non-blocking send. On timeout: if shutdown is
// in progress the message is routed directly to quarantine ("buffer-full
// shutdown"); otherwise it falls back to an unbounded blocking send, which
// pauses the stream adapter for the duration of the block.
func (b *Buffer) Enqueue(ctx context.Context, msg PendingMessage) {
	select {
	case b.ch <- msg:
		return
	case <-time.After(b.enqueueWait):
	}

	if b.shuttingDown.Load() {
		b.quarantine.QuarantineRaw(ctx, msg.Raw, "buffer-full shutdown")
		return
	}

	b.pauser.Pause()
	defer b.pauser.Resume()
	select {
	case b.ch <- msg:
	case <-ctx.Done():
	}
}

// Run drives the dedicated flush loop. It must be started exactly once.
func (b *Buffer) Run(ctx context.Context) {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	var batch []PendingMessage

	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.drainWithRetry(ctx, batch)
		batch = nil
	}

	for {
		target := b.sizer.Current()
		select {
		case <-ctx.Done():
			flush()
			return
		case <-b.stopCh:
			flush()
			return
		case msg := <-b.ch:
			batch = append(batch, msg)
			if len(batch) >= target || len(batch) >= b.batchMax {
				flush()
			}
		case <-ticker.C:
			if len(batch) == 0 {
				b.sizer.Reset()
			}
			flush()
		}
	}
}

// drainWithRetry hands the batch to PersistenceCore, retrying the same
// batch under exponential backoff while the circuit breaker is open, and
// pausing/resuming the stream adapter across the retry window.
func (b *Buffer) drainWithRetry(ctx context.Context, batch []PendingMessage) {
	if len(batch) > b.batchMax {
		batch = batch[:b.batchMax]
	}

	for {
		start := time.Now()
		err := b.persister.PersistBatch(ctx, batch)
		latency := time.Since(start)

		if err == nil {
			b.backoff = 0
			b.sizer.Observe(latency, len(batch))
			return
		}

		if !errors.Is(err, ErrCallNotPermitted) {
			b.logger.Error("ingestbuffer: persistBatch failed unexpectedly", zap.Error(err))
			return
		}

		b.pauser.Pause()
		b.backoff = nextBackoff(b.backoff)
		b.logger.Warn("ingestbuffer: circuit open, backing off", zap.Duration("backoff", b.backoff))

		select {
		case <-ctx.Done():
			b.pauser.Resume()
			return
		case <-time.After(b.backoff):
		}
		b.pauser.Resume()
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	if cur == 0 {
		return 100 * time.Millisecond
	}
	next := cur * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}

// BeginShutdown marks the buffer as shutting down: subsequent Enqueue
// timeouts route straight to quarantine instead of blocking the producer.
func (b *Buffer) BeginShutdown() {
	b.shuttingDown.Store(true)
}

func (b *Buffer) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	<-b.doneCh
}
