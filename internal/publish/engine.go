package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/n1shan1/pms-trade-capture/internal/outbox"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

// ResultKind is the sum-type tag for a PublicationEngine.ProcessBatch call.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultPoisonPill
	ResultSystemFailure
)

// PoisonPillEntry names the single entry that halted the batch with a
// permanent failure.
type PoisonPillEntry struct {
	ID     int64
	Reason string
}

// Result is the sum type: Success{ids} | PoisonPill{ids, reason} |
// SystemFailure{ids}. Successful is always a contiguous prefix of the input
// entries, ending at the first failure (or the full batch on success).
type Result struct {
	Kind       ResultKind
	Successful []int64
	Poison     *PoisonPillEntry
}

// Engine walks a portfolio-ordered batch of outbox entries, decoding and
// publishing each in turn.
type Engine struct {
	publisher  Publisher
	classifier *Classifier
	pubTimeout time.Duration
}

func NewEngine(publisher Publisher, classifier *Classifier, pubTimeout time.Duration) *Engine {
	return &Engine{publisher: publisher, classifier: classifier, pubTimeout: pubTimeout}
}

// ProcessBatch never advances past a failing entry: later entries in
// entries stay PENDING so a subsequent iteration can retry them in order.
func (e *Engine) ProcessBatch(ctx context.Context, entries []outbox.Entry) Result {
	successful := make([]int64, 0, len(entries))

	for _, entry := range entries {
		ev, err := tradeevent.DecodeEvent(entry.Payload)
		if err != nil {
			return Result{
				Kind:       ResultPoisonPill,
				Successful: successful,
				Poison:     &PoisonPillEntry{ID: entry.ID, Reason: fmt.Sprintf("decode failure: %v", err)},
			}
		}

		wire, err := Encode(ev)
		if err != nil {
			return Result{
				Kind:       ResultPoisonPill,
				Successful: successful,
				Poison:     &PoisonPillEntry{ID: entry.ID, Reason: err.Error()},
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, e.pubTimeout)
		err = e.publisher.Publish(pubCtx, entry.PortfolioID, wire)
		cancel()

		if err == nil {
			successful = append(successful, entry.ID)
			continue
		}

		switch e.classifier.Classify(err) {
		case ClassPoisonPill:
			return Result{
				Kind:       ResultPoisonPill,
				Successful: successful,
				Poison:     &PoisonPillEntry{ID: entry.ID, Reason: err.Error()},
			}
		default:
			return Result{Kind: ResultSystemFailure, Successful: successful}
		}
	}

	return Result{Kind: ResultSuccess, Successful: successful}
}
