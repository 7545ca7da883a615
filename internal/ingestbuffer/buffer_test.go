package ingestbuffer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

type fakePersister struct {
	mu      sync.Mutex
	batches [][]PendingMessage
	err     error
}

func (f *fakePersister) PersistBatch(ctx context.Context, batch []PendingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return f.err
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakePauser struct {
	paused atomic.Int32
}

func (f *fakePauser) Pause()  { f.paused.Add(1) }
func (f *fakePauser) Resume() {}

type fakeQuarantine struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeQuarantine) QuarantineRaw(ctx context.Context, raw []byte, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func newTestMsg(raw string) PendingMessage {
	return NewPendingMessage([]byte(raw), tradeevent.Decoded{Invalid: &tradeevent.InvalidMessage{Reason: "test"}}, nil)
}

func TestBuffer_FlushesOnTickerWhenBelowTarget(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sizer := NewAdaptiveBatchSizer(16, 64, 100*time.Millisecond)
	persister := &fakePersister{}
	pauser := &fakePauser{}
	quarantine := &fakeQuarantine{}

	buf := NewBuffer(100, 20*time.Millisecond, 10*time.Millisecond, 64, sizer, persister, pauser, quarantine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go buf.Run(ctx)
	defer buf.Stop()

	buf.Enqueue(ctx, newTestMsg("a"))
	buf.Enqueue(ctx, newTestMsg("b"))

	require.Eventually(t, func() bool { return persister.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, 2, len(persister.batches[0]))
}

func TestBuffer_RetriesOnCallNotPermitted(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sizer := NewAdaptiveBatchSizer(16, 64, 100*time.Millisecond)
	persister := &fakePersister{err: ErrCallNotPermitted}
	pauser := &fakePauser{}
	quarantine := &fakeQuarantine{}

	buf := NewBuffer(100, 20*time.Millisecond, 10*time.Millisecond, 64, sizer, persister, pauser, quarantine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	buf.Enqueue(ctx, newTestMsg("a"))

	go buf.Run(ctx)

	require.Eventually(t, func() bool { return persister.count() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Greater(t, pauser.paused.Load(), int32(0))

	cancel()
	buf.Stop()
}

func TestBuffer_ShutdownQuarantinesOnEnqueueTimeout(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sizer := NewAdaptiveBatchSizer(16, 64, 100*time.Millisecond)
	persister := &fakePersister{}
	pauser := &fakePauser{}
	quarantine := &fakeQuarantine{}

	// capacity 0 so any send blocks past enqueueWait immediately.
	buf := NewBuffer(0, 5*time.Millisecond, time.Hour, 64, sizer, persister, pauser, quarantine, logger)
	buf.BeginShutdown()

	ctx := context.Background()
	buf.Enqueue(ctx, newTestMsg("dropped"))

	quarantine.mu.Lock()
	defer quarantine.mu.Unlock()
	require.Len(t, quarantine.reasons, 1)
	assert.Equal(t, "buffer-full shutdown", quarantine.reasons[0])
}
