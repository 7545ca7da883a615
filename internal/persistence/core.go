package persistence

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/dedupe"
	"github.com/n1shan1/pms-trade-capture/internal/ingestbuffer"
	"github.com/n1shan1/pms-trade-capture/internal/metrics"
	"github.com/n1shan1/pms-trade-capture/internal/store"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

// StoreOffsetFunc durably records that handle's source-stream offset has
// been processed. It is invoked only after the transaction containing the
// corresponding AuditRecord has committed.
type StoreOffsetFunc func(ctx context.Context, handle any) error

// Core implements the four-level persistence fallback described in
// spec.md §4.4: one-shot batch transaction, per-item safe transaction,
// isolated quarantine transaction, and a last-resort disk log.
type Core struct {
	pool        *pgxpool.Pool
	breaker     *CircuitBreaker
	storeOffset StoreOffsetFunc
	diskPath    string
	logger      *zap.Logger
	dedupe      *dedupe.Cache
	sink        metrics.Sink
}

func NewCore(pool *pgxpool.Pool, breaker *CircuitBreaker, storeOffset StoreOffsetFunc, diskPath string, logger *zap.Logger, dc *dedupe.Cache, sink metrics.Sink) *Core {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Core{pool: pool, breaker: breaker, storeOffset: storeOffset, diskPath: diskPath, logger: logger, dedupe: dc, sink: sink}
}

// PersistBatch satisfies ingestbuffer.Persister. It returns
// ingestbuffer.ErrCallNotPermitted whenever the flush loop should pause the
// stream and retry the same batch (breaker open, or an unrecovered system
// failure); any data-level failure is absorbed internally by the fallback
// levels and never reaches the caller.
func (c *Core) PersistBatch(ctx context.Context, batch []ingestbuffer.PendingMessage) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return store.RunInTransaction(ctx, c.pool, func(ctx context.Context, tx pgx.Tx) error {
			for _, msg := range batch {
				if err := c.insertOneTx(ctx, tx, msg); err != nil {
					return err
				}
			}
			return nil
		})
	})

	switch {
	case err == nil:
		last := batch[len(batch)-1]
		if serr := c.storeOffset(ctx, last.Handle); serr != nil {
			c.logger.Error("persistence: storeOffset failed after commit", zap.Error(serr))
		}
		c.sink.IncCounter("persistence_batch_total", map[string]string{"result": "success"})
		c.sink.ObserveLatency("persistence_batch_seconds", map[string]string{"path": "batch"}, time.Since(start).Seconds())
		return nil

	case errors.Is(err, ErrCallNotPermitted):
		c.sink.IncCounter("persistence_batch_total", map[string]string{"result": "breaker_open"})
		return ingestbuffer.ErrCallNotPermitted

	case isDataError(err):
		c.sink.IncCounter("persistence_batch_total", map[string]string{"result": "fallback_per_item"})
		return c.fallbackPerItem(ctx, batch)

	default:
		// Unclassified / system failure: the breaker has recorded it, but
		// this attempt itself still needs the caller to pause and retry.
		c.logger.Warn("persistence: batch transaction failed with system error", zap.Error(err))
		c.sink.IncCounter("persistence_batch_total", map[string]string{"result": "system_failure"})
		return ingestbuffer.ErrCallNotPermitted
	}
}

// fallbackPerItem is Level 2: persistSingleSafely for every message in the
// batch. It never returns an error for data-level failures — those cascade
// to Level 3/4 internally — but still offsets the whole batch once done,
// since every message (quarantined or not) has by now received a durable
// disposition.
func (c *Core) fallbackPerItem(ctx context.Context, batch []ingestbuffer.PendingMessage) error {
	for _, msg := range batch {
		if err := c.persistSingleSafely(ctx, msg); err != nil {
			// A system failure surfaced from the per-item path: stop and
			// signal the caller to retry the remainder under backoff. The
			// messages already safely persisted keep their disposition
			// (idempotent audit insert on tradeId makes the retry safe).
			return ingestbuffer.ErrCallNotPermitted
		}
	}
	last := batch[len(batch)-1]
	if serr := c.storeOffset(ctx, last.Handle); serr != nil {
		c.logger.Error("persistence: storeOffset failed after per-item fallback", zap.Error(serr))
	}
	return nil
}

// persistSingleSafely is Level 2 for a single message, run in its own
// transaction. A data error routes to Level 3 (independent quarantine
// transaction); a system error is rethrown so the caller retries.
func (c *Core) persistSingleSafely(ctx context.Context, msg ingestbuffer.PendingMessage) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return store.RunInTransaction(ctx, c.pool, func(ctx context.Context, tx pgx.Tx) error {
			return c.insertOneTx(ctx, tx, msg)
		})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCallNotPermitted) {
		return err
	}
	if isDataError(err) {
		c.quarantineIsolated(ctx, msg.Raw, err.Error())
		return nil
	}
	return err
}

// QuarantineRaw satisfies ingestbuffer.QuarantineSink: it is the path taken
// when Enqueue times out during shutdown ("buffer-full shutdown").
func (c *Core) QuarantineRaw(ctx context.Context, raw []byte, reason string) {
	c.quarantineIsolated(ctx, raw, reason)
}

// quarantineIsolated is Level 3: an independent transaction that commits
// even if the surrounding attempt rolled back. Falls through to Level 4 —
// the only place an error is intentionally swallowed — if even this fails.
func (c *Core) quarantineIsolated(ctx context.Context, raw []byte, reason string) {
	err := store.RunInTransaction(ctx, c.pool, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO quarantine (raw_message, error_detail) VALUES ($1, $2)`,
			raw, truncate(reason, 4096),
		)
		return err
	})
	if err != nil {
		c.writeLostToDisk(raw, reason, err)
		return
	}
	c.sink.IncCounter("persistence_quarantine_total", nil)
}

// writeLostToDisk is Level 4: the last-resort structured disk log. The
// error is swallowed here by design; this is the single place where a
// message may be permanently lost, and it must be loud about it.
func (c *Core) writeLostToDisk(raw []byte, reason string, quarantineErr error) {
	c.sink.IncCounter("persistence_lost_total", nil)
	line := fmt.Sprintf("%s lost-to-disk reason=%q quarantine_err=%q payload_hex=%s\n",
		time.Now().UTC().Format(time.RFC3339Nano), reason, quarantineErr, hex.EncodeToString(raw))

	f, err := os.OpenFile(c.diskPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		c.logger.Error("persistence: LOST MESSAGE, disk fallback unavailable",
			zap.String("payload_hex", hex.EncodeToString(raw)), zap.String("reason", reason), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		c.logger.Error("persistence: LOST MESSAGE, disk write failed",
			zap.String("payload_hex", hex.EncodeToString(raw)), zap.String("reason", reason), zap.Error(err))
		return
	}
	c.logger.Error("persistence: LOST MESSAGE, written to disk fallback",
		zap.String("payload_hex", hex.EncodeToString(raw)), zap.String("reason", reason), zap.String("path", c.diskPath))
}

func (c *Core) insertOneTx(ctx context.Context, tx pgx.Tx, msg ingestbuffer.PendingMessage) error {
	if msg.Decoded.IsValid() {
		if c.dedupe != nil && c.dedupe.Seen(msg.Decoded.Event.TradeID) {
			return nil
		}
		return c.insertValidTx(ctx, tx, msg)
	}
	return c.insertInvalidTx(ctx, tx, msg)
}

func (c *Core) insertValidTx(ctx context.Context, tx pgx.Tx, msg ingestbuffer.PendingMessage) error {
	ev := msg.Decoded.Event

	var auditID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO audit (portfolio_id, trade_id, raw_payload, symbol, side, price_per_stock, quantity, event_timestamp, valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		ON CONFLICT (trade_id) WHERE valid DO NOTHING
		RETURNING id`,
		ev.PortfolioID, ev.TradeID, msg.Raw, ev.Symbol, string(ev.Side), ev.PricePerStock, ev.Quantity, ev.EventTimestamp,
	).Scan(&auditID)

	if errors.Is(err, pgx.ErrNoRows) {
		// Idempotent duplicate: absorbed without error, no outbox re-emit.
		if c.dedupe != nil {
			c.dedupe.Mark(ev.TradeID)
		}
		return nil
	}
	if err != nil {
		return classify(err)
	}

	payload, err := tradeevent.EncodeEvent(ev)
	if err != nil {
		return classify(err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (portfolio_id, trade_id, payload) VALUES ($1, $2, $3)`,
		ev.PortfolioID, ev.TradeID, payload,
	)
	if err != nil {
		return classify(err)
	}
	if c.dedupe != nil {
		c.dedupe.Mark(ev.TradeID)
	}
	return nil
}

func (c *Core) insertInvalidTx(ctx context.Context, tx pgx.Tx, msg ingestbuffer.PendingMessage) error {
	sentinel := "invalid:" + uuid.NewString()
	reason := msg.Decoded.Invalid.Reason

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit (portfolio_id, trade_id, raw_payload, valid)
		VALUES ('', $1, $2, false)`,
		sentinel, msg.Raw,
	); err != nil {
		return classify(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO quarantine (raw_message, error_detail) VALUES ($1, $2)`,
		msg.Raw, truncate(reason, 4096),
	); err != nil {
		return classify(err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// classify wraps non-data errors as *SystemFailure so the circuit breaker
// counts them toward opening; data errors (unique/integrity violations) are
// returned unwrapped and must never open the breaker.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isDataError(err) {
		return err
	}
	return &SystemFailure{Err: err}
}

// FetchAudit is the admin-facing lookup behind the /admin/audit/:tradeId
// route: it reads back exactly what insertOneTx wrote for tradeID, valid or
// not, without touching the outbox or quarantine tables. symbol/side/price/
// quantity/eventTimestamp are NULL for invalid (quarantined) messages.
func (c *Core) FetchAudit(ctx context.Context, tradeID string) (*AuditRecord, error) {
	var (
		rec            AuditRecord
		symbol, side   sql.NullString
		price          sql.NullFloat64
		quantity       sql.NullInt64
		eventTimestamp sql.NullTime
	)
	err := c.pool.QueryRow(ctx, `
		SELECT id, received_at, portfolio_id, trade_id, raw_payload, symbol, side, price_per_stock, quantity, event_timestamp, valid
		FROM audit WHERE trade_id = $1`,
		tradeID,
	).Scan(&rec.ID, &rec.ReceivedAt, &rec.PortfolioID, &rec.TradeID, &rec.RawPayload, &symbol, &side, &price, &quantity, &eventTimestamp, &rec.Valid)
	if err != nil {
		return nil, err
	}
	rec.Symbol = symbol.String
	rec.Side = side.String
	rec.PricePerStock = price.Float64
	rec.Quantity = quantity.Int64
	rec.EventTimestamp = eventTimestamp.Time
	return &rec, nil
}

func isDataError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23502", "23503", "23514", "22P02":
			return true
		}
	}
	return false
}
