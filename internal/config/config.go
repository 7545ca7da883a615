package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// IngestConfig holds everything cmd/ingestd needs to wire up.
type IngestConfig struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	KafkaBrokers string `env:"KAFKA_BROKERS,required"`
	StreamName   string `env:"STREAM_NAME" envDefault:"trades"`
	ConsumerName string `env:"CONSUMER_NAME" envDefault:"ingestd"`
	Port         string `env:"PORT" envDefault:"8080"`

	BufferCapacity  int           `env:"BUFFER_CAPACITY" envDefault:"10000"`
	FlushIntervalMs int           `env:"FLUSH_INTERVAL_MS" envDefault:"250"`
	BatchMin        int           `env:"BATCH_MIN" envDefault:"16"`
	BatchMax        int           `env:"BATCH_MAX" envDefault:"2048"`
	TargetLatencyMs int           `env:"TARGET_LATENCY_MS" envDefault:"100"`
	EnqueueWaitMs   int           `env:"ENQUEUE_WAIT_MS" envDefault:"50"`
	QuarantineTTL   time.Duration `env:"QUARANTINE_RETENTION" envDefault:"720h"`

	BreakerFailureRate    float64       `env:"BREAKER_FAILURE_RATE" envDefault:"0.5"`
	BreakerOpenDuration   time.Duration `env:"BREAKER_OPEN_DURATION" envDefault:"30s"`
	BreakerWindowSize     int           `env:"BREAKER_WINDOW_SIZE" envDefault:"20"`
	BreakerHalfOpenProbes int           `env:"BREAKER_HALF_OPEN_PROBES" envDefault:"5"`

	DiskFallbackPath string `env:"DISK_FALLBACK_PATH" envDefault:"/var/lib/pms-trade-capture/lost.log"`

	DedupeCacheMaxCostMB int64         `env:"DEDUPE_CACHE_MAX_COST_MB" envDefault:"64"`
	DedupeCacheTTL       time.Duration `env:"DEDUPE_CACHE_TTL" envDefault:"10m"`
}

// DispatchConfig holds everything cmd/dispatchd needs to wire up.
type DispatchConfig struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	KafkaBrokers string `env:"KAFKA_BROKERS,required"`
	DestTopic    string `env:"DEST_TOPIC" envDefault:"trades.outbox"`
	Port         string `env:"PORT" envDefault:"8081"`

	Workers int `env:"DISPATCH_WORKERS" envDefault:"1"`

	BatchMin        int           `env:"BATCH_MIN" envDefault:"16"`
	BatchMax        int           `env:"BATCH_MAX" envDefault:"2048"`
	TargetLatencyMs int           `env:"TARGET_LATENCY_MS" envDefault:"100"`
	PubTimeoutMs    int           `env:"PUB_TIMEOUT_MS" envDefault:"5000"`
	IdleIntervalMs  int           `env:"IDLE_INTERVAL_MS" envDefault:"200"`

	SystemFailureBackoffMs int `env:"SYSTEM_FAILURE_BACKOFF_MS" envDefault:"500"`
	MaxBackoffMs           int `env:"MAX_BACKOFF_MS" envDefault:"60000"`
}

func LoadIngest() (IngestConfig, error) {
	var cfg IngestConfig
	return cfg, env.Parse(&cfg)
}

func LoadDispatch() (DispatchConfig, error) {
	var cfg DispatchConfig
	return cfg, env.Parse(&cfg)
}
