// Command tradegen emits synthetic TradeEvent messages onto the ingress
// topic, for exercising ingestd/dispatchd without a real upstream feed.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.StayAlive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TTL)
		defer cancel()
	}

	if cfg.EnsureTopic {
		EnsureTopic(ctx, cfg.Brokers[0], cfg.Topic)
	}

	writer := NewKafkaWriter(cfg.Brokers, cfg.Topic)
	defer writer.Close()

	log.Printf("tradegen: streaming to topic=%s brokers=%v rate=%d/s stayAlive=%v",
		cfg.Topic, cfg.Brokers, cfg.RatePerSec, cfg.StayAlive)

	runLoop(ctx, cfg, writer)

	// give the writer a moment to flush its last batch after ctx is done.
	time.Sleep(200 * time.Millisecond)
	os.Exit(0)
}
