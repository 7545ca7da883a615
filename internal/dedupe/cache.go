// Package dedupe provides an in-memory best-effort fast path for skipping
// redispatch of trade IDs this process has already persisted, so a hot
// retry loop (stream replay, consumer rebalance) does not round-trip to
// Postgres just to hit the audit table's unique-index no-op.
//
// This is an optimization only: the audit table's partial unique index on
// (trade_id) WHERE valid remains the source of truth for idempotency. A
// cache miss or process restart always falls through to the database.
package dedupe

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func New(maxCost int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Seen reports whether tradeID was already recorded via Mark.
func (c *Cache) Seen(tradeID string) bool {
	_, ok := c.c.Get(tradeID)
	return ok
}

// Mark records tradeID as durably persisted.
func (c *Cache) Mark(tradeID string) {
	c.c.SetWithTTL(tradeID, struct{}{}, 1, c.ttl)
}

func (c *Cache) Close() { c.c.Close() }
