package outbox

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
)

// Repository implements the three operations spec.md §4.6 calls for:
// advisory-lock-scoped fetch, bulk status update, and quarantine insert.
//
// This deliberately does NOT use the SELECT ... FOR UPDATE SKIP LOCKED +
// per-row attempts-counter pattern (see e.g. the relay in the reference
// pack's jacksonlee411-Bugs-Blossoms/pkg/outbox): that design retries rows
// individually and provides no per-portfolio ordering guarantee. Per
// spec.md §9 Open Question 1, this must stay on the transaction-scoped
// advisory-lock + prefix-safe design.
type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

// FetchPendingBatch returns up to limit PENDING entries ordered by
// (created_at, id), filtered to rows whose portfolio-scoped advisory lock
// this transaction can acquire. The lock is transaction-scoped: it is held
// for the lifetime of tx and auto-released on commit/rollback, which is what
// gives concurrent dispatchers exclusive per-portfolio ownership.
func (r *Repository) FetchPendingBatch(ctx context.Context, tx pgx.Tx, limit int) ([]Entry, error) {
	const q = `
		SELECT id, created_at, portfolio_id, trade_id, payload, status, sent_at
		FROM outbox o
		WHERE status = 'PENDING'
		  AND pg_try_advisory_xact_lock(hashtext(o.portfolio_id)::bigint)
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	rows, err := tx.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending batch: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.PortfolioID, &e.TradeID, &e.Payload, &e.Status, &e.SentAt); err != nil {
			return nil, fmt.Errorf("outbox: scan pending batch row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkBatchAsSent performs a single bulk UPDATE over every id in ids.
func (r *Repository) MarkBatchAsSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE outbox SET status = 'SENT', sent_at = now() WHERE id = ANY($1)`
	_, err := tx.Exec(ctx, q, ids)
	if err != nil {
		return fmt.Errorf("outbox: mark batch sent: %w", err)
	}
	return nil
}

// Quarantine inserts a QuarantineEntry for entry and deletes the OutboxEntry,
// both within the caller's transaction.
func (r *Repository) Quarantine(ctx context.Context, tx pgx.Tx, entry Entry, reason string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO quarantine (raw_message, error_detail) VALUES ($1, $2)`,
		entry.Payload, truncate(reason, 4096),
	); err != nil {
		return fmt.Errorf("outbox: insert quarantine entry: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM outbox WHERE id = $1`, entry.ID); err != nil {
		return fmt.Errorf("outbox: delete quarantined outbox row: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// PortfolioLockKey returns an FNV-64a hash of portfolioID that is the same
// across calls and process restarts. FetchPendingBatch does not call it: the
// advisory-lock key there is computed in SQL with hashtext(portfolio_id).
func PortfolioLockKey(portfolioID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(portfolioID))
	return int64(h.Sum64())
}
