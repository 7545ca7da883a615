package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/adminhttp"
	"github.com/n1shan1/pms-trade-capture/internal/config"
	"github.com/n1shan1/pms-trade-capture/internal/dedupe"
	"github.com/n1shan1/pms-trade-capture/internal/ingestbuffer"
	"github.com/n1shan1/pms-trade-capture/internal/logging"
	"github.com/n1shan1/pms-trade-capture/internal/metrics"
	"github.com/n1shan1/pms-trade-capture/internal/persistence"
	"github.com/n1shan1/pms-trade-capture/internal/store"
	"github.com/n1shan1/pms-trade-capture/internal/streamadapter"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

func main() {
	cfg, err := config.LoadIngest()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New()
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("store connect", zap.Error(err))
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		logger.Fatal("store migrate", zap.Error(err))
	}

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	adapter := streamadapter.NewKafkaAdapter(brokers, cfg.StreamName, cfg.ConsumerName, logger)
	defer adapter.Close()

	classifier := tradeevent.NewClassifier()

	breaker := persistence.NewCircuitBreaker(
		cfg.BreakerFailureRate,
		cfg.BreakerOpenDuration,
		cfg.BreakerWindowSize,
		cfg.BreakerHalfOpenProbes,
	)

	dedupeCache, err := dedupe.New(cfg.DedupeCacheMaxCostMB<<20, cfg.DedupeCacheTTL)
	if err != nil {
		logger.Fatal("dedupe cache init", zap.Error(err))
	}
	defer dedupeCache.Close()

	sink := metrics.NewPrometheus()

	core := persistence.NewCore(pool, breaker, func(ctx context.Context, handle any) error {
		return adapter.StoreOffset(ctx, handle)
	}, cfg.DiskFallbackPath, logger, dedupeCache, sink)

	sizer := ingestbuffer.NewAdaptiveBatchSizer(cfg.BatchMin, cfg.BatchMax, time.Duration(cfg.TargetLatencyMs)*time.Millisecond)

	buffer := ingestbuffer.NewBuffer(
		cfg.BufferCapacity,
		time.Duration(cfg.EnqueueWaitMs)*time.Millisecond,
		time.Duration(cfg.FlushIntervalMs)*time.Millisecond,
		cfg.BatchMax,
		sizer,
		core,
		adapter,
		core,
		logger,
	)
	go buffer.Run(ctx)

	go func() {
		handler := func(ctx context.Context, raw []byte, handle streamadapter.AckHandle) error {
			decoded := classifier.Classify(raw)
			buffer.Enqueue(ctx, ingestbuffer.NewPendingMessage(raw, decoded, handle))
			return nil
		}
		if err := adapter.Run(ctx, handler); err != nil && ctx.Err() == nil {
			logger.Error("streamadapter run", zap.Error(err))
			cancel()
		}
	}()

	go runQuarantineRetentionSweep(ctx, pool, cfg.QuarantineTTL, logger)

	admin := adminhttp.NewServer(buffer, classifier, core, logger)
	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: admin.R}
	go func() {
		logger.Info("admin http listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("admin http", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutdown: draining buffer")
	buffer.BeginShutdown()
	buffer.Stop()
	cancel()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = httpServer.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
