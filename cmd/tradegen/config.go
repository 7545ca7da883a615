package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config mirrors the teacher's producer/cmd/producer.Config, adapted to
// this pipeline's env var names and TradeEvent schema.
type Config struct {
	Brokers   []string
	Topic     string
	RatePerSec int

	StayAlive   bool
	TTL         time.Duration
	EnsureTopic bool
}

func LoadConfig() Config {
	brokers := parseBrokers(envOr("KAFKA_BROKERS", "localhost:9092"))
	topic := envOr("STREAM_NAME", "trades")

	rate := 1
	if v := strings.TrimSpace(os.Getenv("TRADES_PER_SEC")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 && i <= 500 {
			rate = i
		}
	}

	ttl := 2 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("TRADEGEN_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			ttl = d
		} else {
			log.Printf("WARN: invalid TRADEGEN_TTL=%q, using default %s", raw, ttl)
		}
	}

	return Config{
		Brokers:     brokers,
		Topic:       topic,
		RatePerSec:  rate,
		StayAlive:   parseBoolEnv("TRADEGEN_STAY_ALIVE", false),
		TTL:         ttl,
		EnsureTopic: parseBoolEnv("TRADEGEN_ENSURE_TOPIC", true),
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseBrokers(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		log.Fatal("KAFKA_BROKERS is empty")
	}
	return out
}

func parseBoolEnv(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
