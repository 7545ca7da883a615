package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1shan1/pms-trade-capture/internal/outbox"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

type fakePublisher struct {
	failAt int // 0-indexed call count at which to fail, -1 never
	err    error
	calls  int
}

func (f *fakePublisher) Publish(ctx context.Context, portfolioID string, payload []byte) error {
	defer func() { f.calls++ }()
	if f.failAt >= 0 && f.calls == f.failAt {
		return f.err
	}
	return nil
}

func mkEntry(id int64, portfolioID, tradeID string) outbox.Entry {
	ev := tradeevent.TradeEvent{
		TradeID:        tradeID,
		PortfolioID:    portfolioID,
		Symbol:         "AAPL",
		Side:           tradeevent.SideBuy,
		PricePerStock:  1,
		Quantity:       1,
		EventTimestamp: time.Now().UTC(),
	}
	payload, _ := tradeevent.EncodeEvent(&ev)
	return outbox.Entry{ID: id, PortfolioID: portfolioID, TradeID: tradeID, Payload: payload, Status: outbox.StatusPending}
}

func TestEngine_ProcessBatch_AllSucceed(t *testing.T) {
	pub := &fakePublisher{failAt: -1}
	e := NewEngine(pub, NewClassifier(), time.Second)

	entries := []outbox.Entry{mkEntry(1, "pf-1", "t-1"), mkEntry(2, "pf-1", "t-2")}
	result := e.ProcessBatch(context.Background(), entries)

	assert.Equal(t, ResultSuccess, result.Kind)
	assert.Equal(t, []int64{1, 2}, result.Successful)
	assert.Nil(t, result.Poison)
}

func TestEngine_ProcessBatch_StopsAtPoisonPillWithContiguousPrefix(t *testing.T) {
	pub := &fakePublisher{failAt: 1, err: ErrValidationFailure}
	e := NewEngine(pub, NewClassifier(), time.Second)

	entries := []outbox.Entry{mkEntry(1, "pf-1", "t-1"), mkEntry(2, "pf-1", "t-2"), mkEntry(3, "pf-1", "t-3")}
	result := e.ProcessBatch(context.Background(), entries)

	require.Equal(t, ResultPoisonPill, result.Kind)
	assert.Equal(t, []int64{1}, result.Successful)
	require.NotNil(t, result.Poison)
	assert.Equal(t, int64(2), result.Poison.ID)
}

func TestEngine_ProcessBatch_StopsAtSystemFailureWithContiguousPrefix(t *testing.T) {
	pub := &fakePublisher{failAt: 0, err: ErrBrokerUnavailable}
	e := NewEngine(pub, NewClassifier(), time.Second)

	entries := []outbox.Entry{mkEntry(1, "pf-1", "t-1"), mkEntry(2, "pf-1", "t-2")}
	result := e.ProcessBatch(context.Background(), entries)

	assert.Equal(t, ResultSystemFailure, result.Kind)
	assert.Empty(t, result.Successful)
}

func TestEngine_ProcessBatch_DecodeFailureIsPoisonPill(t *testing.T) {
	pub := &fakePublisher{failAt: -1}
	e := NewEngine(pub, NewClassifier(), time.Second)

	bad := outbox.Entry{ID: 1, PortfolioID: "pf-1", TradeID: "t-1", Payload: []byte("not json")}
	result := e.ProcessBatch(context.Background(), []outbox.Entry{bad})

	require.Equal(t, ResultPoisonPill, result.Kind)
	assert.Equal(t, int64(1), result.Poison.ID)
}
