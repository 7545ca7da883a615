package outbox

import "time"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
)

// Entry is a durable row coupling a valid business event (the audit record)
// with a future downstream publication. It exists iff the corresponding
// AuditRecord is valid, and transitions PENDING -> SENT once and only once.
type Entry struct {
	ID          int64
	CreatedAt   time.Time
	PortfolioID string
	TradeID     string
	Payload     []byte
	Status      Status
	SentAt      *time.Time
}
