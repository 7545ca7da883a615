package persistence

import "time"

// AuditRecord is the durable audit trail: exactly one is written per
// received message, valid or not, before its source-stream offset is
// acknowledged.
type AuditRecord struct {
	ID             int64
	ReceivedAt     time.Time
	PortfolioID    string
	TradeID        string
	RawPayload     []byte
	Symbol         string
	Side           string
	PricePerStock  float64
	Quantity       int64
	EventTimestamp time.Time
	Valid          bool
}
