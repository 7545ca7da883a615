package tradeevent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent_RoundTrip(t *testing.T) {
	ev := &TradeEvent{
		TradeID:        "t-1",
		PortfolioID:    "pf-1",
		Symbol:         "AAPL",
		Side:           SideSell,
		PricePerStock:  190.25,
		Quantity:       42,
		EventTimestamp: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
	}

	raw, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.TradeID, got.TradeID)
	assert.Equal(t, ev.PortfolioID, got.PortfolioID)
	assert.Equal(t, ev.Side, got.Side)
	assert.Equal(t, ev.PricePerStock, got.PricePerStock)
	assert.True(t, ev.EventTimestamp.Equal(got.EventTimestamp))
}

func TestDecodeEvent_MalformedPayload(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
