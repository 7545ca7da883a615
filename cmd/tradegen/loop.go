package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

func runLoop(ctx context.Context, cfg Config, w *kafka.Writer) {
	rate := cfg.RatePerSec
	if rate <= 0 {
		rate = 1
	}
	period := time.Second / time.Duration(rate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				log.Println("tradegen: TTL reached; exiting")
			} else {
				log.Println("tradegen: shutting down (signal)")
			}
			return
		case <-ticker.C:
			time.Sleep(time.Duration(rng.Intn(150)) * time.Millisecond)

			ev := genTrade()
			b, err := json.Marshal(ev)
			if err != nil {
				log.Printf("tradegen: marshal error: %v", err)
				continue
			}

			msg := kafka.Message{Key: []byte(ev.PortfolioID), Value: b, Time: ev.EventTimestamp}
			if err := w.WriteMessages(ctx, msg); err != nil {
				log.Printf("tradegen: write error: %v", err)
				continue
			}
			log.Printf("tradegen: sent %s portfolio=%s %s %s qty=%d price=%.2f",
				ev.TradeID, ev.PortfolioID, ev.Side, ev.Symbol, ev.Quantity, ev.PricePerStock)
		}
	}
}
