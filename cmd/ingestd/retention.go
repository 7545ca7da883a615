package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// runQuarantineRetentionSweep periodically deletes quarantine rows older
// than ttl. spec.md §9 Open Question 2 leaves the retention window
// undocumented by the source; this repo documents 30 days as the default
// (see DESIGN.md), swept hourly.
//
// Grounded on the periodic DELETE pattern in the reference pack's
// jacksonlee411-Bugs-Blossoms/pkg/outbox/cleaner.go.
func runQuarantineRetentionSweep(ctx context.Context, pool *pgxpool.Pool, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-ttl)
		tag, err := pool.Exec(ctx, `DELETE FROM quarantine WHERE failed_at < $1`, cutoff)
		if err != nil {
			logger.Warn("retention: quarantine sweep failed", zap.Error(err))
			continue
		}
		if tag.RowsAffected() > 0 {
			logger.Info("retention: quarantine sweep", zap.Int64("deleted", tag.RowsAffected()))
		}
	}
}
