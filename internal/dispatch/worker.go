package dispatch

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/ingestbuffer"
	"github.com/n1shan1/pms-trade-capture/internal/metrics"
	"github.com/n1shan1/pms-trade-capture/internal/outbox"
	"github.com/n1shan1/pms-trade-capture/internal/publish"
	"github.com/n1shan1/pms-trade-capture/internal/store"
)

// State is the worker's public lifecycle state, exposed for admin/health.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateDispatching
	StateCommitting
	StateBackingOff
	StateStopped
)

// Worker is a single long-running dispatch loop. It runs on a dedicated
// goroutine; correctness under multiple concurrently-running Workers (in
// one process or across pods) comes from the outbox repository's advisory lock, not from any
// coordination between Workers.
type Worker struct {
	pool *pgxpool.Pool
	repo *outbox.Repository
	eng  *publish.Engine

	sizer *ingestbuffer.AdaptiveBatchSizer

	idleInterval time.Duration
	backoffBase  time.Duration
	backoffMax   time.Duration

	logger *zap.Logger
	sink   metrics.Sink

	state        State
	currentBack  time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

func NewWorker(
	pool *pgxpool.Pool,
	repo *outbox.Repository,
	eng *publish.Engine,
	sizer *ingestbuffer.AdaptiveBatchSizer,
	idleInterval, backoffBase, backoffMax time.Duration,
	logger *zap.Logger,
	sink metrics.Sink,
) *Worker {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Worker{
		pool:         pool,
		repo:         repo,
		eng:          eng,
		sizer:        sizer,
		idleInterval: idleInterval,
		backoffBase:  backoffBase,
		backoffMax:   backoffMax,
		logger:       logger,
		sink:         sink,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

func (w *Worker) State() State { return w.state }

// Run drives {Idle -> Fetching -> Dispatching -> Committing -> Idle |
// BackingOff -> Idle} until Stop is called. The loop always finishes
// committing (or rolling back) its in-progress transaction before checking
// for stop — it never exits mid-batch.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.state = StateStopped
			return
		case <-w.stopCh:
			w.state = StateStopped
			return
		default:
		}

		if w.currentBack > 0 {
			w.state = StateBackingOff
			select {
			case <-ctx.Done():
				w.state = StateStopped
				return
			case <-w.stopCh:
				w.state = StateStopped
				return
			case <-time.After(w.currentBack):
			}
		}

		w.runIteration(ctx)
	}
}

func (w *Worker) runIteration(ctx context.Context) {
	w.state = StateFetching

	start := time.Now()
	systemFailureThisIter := false
	var totalDispatched int

	err := store.RunInTransaction(ctx, w.pool, func(ctx context.Context, tx pgx.Tx) error {
		entries, err := w.repo.FetchPendingBatch(ctx, tx, w.sizer.Current())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		w.state = StateDispatching
		groups := groupByPortfolio(entries)

		for _, group := range groups {
			result := w.eng.ProcessBatch(ctx, group)
			totalDispatched += len(result.Successful)

			switch result.Kind {
			case publish.ResultSuccess:
				if err := w.repo.MarkBatchAsSent(ctx, tx, result.Successful); err != nil {
					return err
				}
				w.sink.IncCounter("dispatch_published_total", map[string]string{"result": "success"})

			case publish.ResultPoisonPill:
				if err := w.repo.MarkBatchAsSent(ctx, tx, result.Successful); err != nil {
					return err
				}
				failing := lookup(group, result.Poison.ID)
				if err := w.repo.Quarantine(ctx, tx, failing, result.Poison.Reason); err != nil {
					return err
				}
				w.sink.IncCounter("dispatch_published_total", map[string]string{"result": "poison_pill"})

			case publish.ResultSystemFailure:
				if err := w.repo.MarkBatchAsSent(ctx, tx, result.Successful); err != nil {
					return err
				}
				systemFailureThisIter = true
				w.sink.IncCounter("dispatch_published_total", map[string]string{"result": "system_failure"})
				return nil // commit what succeeded; stop the portfolio loop
			}
		}
		return nil
	})

	w.state = StateCommitting
	if err != nil {
		w.logger.Error("dispatch: iteration transaction failed", zap.Error(err))
		w.currentBack = nextBackoff(w.currentBack, w.backoffBase, w.backoffMax)
		return
	}

	if systemFailureThisIter {
		w.currentBack = nextBackoff(w.currentBack, w.backoffBase, w.backoffMax)
		return
	}

	w.currentBack = 0

	if totalDispatched == 0 {
		w.sizer.Reset()
		w.state = StateIdle
		select {
		case <-ctx.Done():
		case <-time.After(w.idleInterval):
		}
		return
	}

	w.sizer.Observe(time.Since(start), totalDispatched)
	w.sink.ObserveLatency("dispatch_iteration_seconds", map[string]string{"outcome": "dispatched"}, time.Since(start).Seconds())
	w.state = StateIdle
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func nextBackoff(cur, base, max time.Duration) time.Duration {
	if cur == 0 {
		return base
	}
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// groupByPortfolio groups entries by portfolioId, preserving the first-seen
// order of each group — which preserves the (createdAt, id) order the
// entries arrived in.
func groupByPortfolio(entries []outbox.Entry) [][]outbox.Entry {
	order := make([]string, 0)
	groups := make(map[string][]outbox.Entry)
	for _, e := range entries {
		if _, ok := groups[e.PortfolioID]; !ok {
			order = append(order, e.PortfolioID)
		}
		groups[e.PortfolioID] = append(groups[e.PortfolioID], e)
	}
	out := make([][]outbox.Entry, 0, len(order))
	for _, p := range order {
		out = append(out, groups[p])
	}
	return out
}

func lookup(group []outbox.Entry, id int64) outbox.Entry {
	for _, e := range group {
		if e.ID == id {
			return e
		}
	}
	return outbox.Entry{}
}
