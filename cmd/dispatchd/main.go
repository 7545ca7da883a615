package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/config"
	"github.com/n1shan1/pms-trade-capture/internal/dispatch"
	"github.com/n1shan1/pms-trade-capture/internal/ingestbuffer"
	"github.com/n1shan1/pms-trade-capture/internal/logging"
	"github.com/n1shan1/pms-trade-capture/internal/metrics"
	"github.com/n1shan1/pms-trade-capture/internal/outbox"
	"github.com/n1shan1/pms-trade-capture/internal/publish"
	"github.com/n1shan1/pms-trade-capture/internal/store"
)

func main() {
	cfg, err := config.LoadDispatch()
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

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	kafkaPub := publish.NewKafkaPublisher(brokers, cfg.DestTopic)
	defer kafkaPub.Close()

	repo := outbox.NewRepository()
	classifier := publish.NewClassifier()
	engine := publish.NewEngine(kafkaPub, classifier, time.Duration(cfg.PubTimeoutMs)*time.Millisecond)
	sink := metrics.NewPrometheus()

	workers := make([]*dispatch.Worker, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		sizer := ingestbuffer.NewAdaptiveBatchSizer(cfg.BatchMin, cfg.BatchMax, time.Duration(cfg.TargetLatencyMs)*time.Millisecond)
		w := dispatch.NewWorker(
			pool, repo, engine, sizer,
			time.Duration(cfg.IdleIntervalMs)*time.Millisecond,
			time.Duration(cfg.SystemFailureBackoffMs)*time.Millisecond,
			time.Duration(cfg.MaxBackoffMs)*time.Millisecond,
			logger,
			sink,
		)
		workers = append(workers, w)
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *dispatch.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		logger.Info("dispatchd metrics http listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("dispatchd http", zap.Error(err))
		}
	}()

	logger.Info("dispatchd started", zap.Int("workers", cfg.Workers), zap.String("dest_topic", cfg.DestTopic))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutdown: stopping dispatch workers")
	for _, w := range workers {
		w.Stop()
	}
	cancel()
	wg.Wait()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = httpServer.Shutdown(ctxShut)

	logger.Info("shutdown complete")
}
