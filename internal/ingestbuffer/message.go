package ingestbuffer

import (
	"github.com/n1shan1/pms-trade-capture/internal/streamadapter"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

// PendingMessage is immutable after construction: it pairs a classified
// TradeEvent (or InvalidMessage) with the raw bytes it was decoded from and
// the source-stream ack handle needed to advance the offset once the batch
// containing it has been durably persisted.
type PendingMessage struct {
	Raw     []byte
	Decoded tradeevent.Decoded
	Handle  streamadapter.AckHandle
}

// ReplayOffsetHandle is the nil ack-handle used for messages injected via
// the admin replay endpoint. StoreOffset treats it as a no-op.
var ReplayOffsetHandle streamadapter.AckHandle = nil

func NewPendingMessage(raw []byte, decoded tradeevent.Decoded, handle streamadapter.AckHandle) PendingMessage {
	return PendingMessage{Raw: raw, Decoded: decoded, Handle: handle}
}
