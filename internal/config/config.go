// Package config loads runtime configuration. Tunables come from the
// environment through viper with conservative defaults; connection secrets
// (Postgres, NATS, Kafka, schema registry) come from Vault and are never
// read from plain environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full tunable surface of the capture pipeline. Durations are
// configured in milliseconds (the *_MS env keys) and materialized as
// time.Duration here.
type Config struct {
	// Ingestion buffer.
	BufferCapacity int
	FlushInterval  time.Duration
	EnqueueWait    time.Duration
	FlushRetry     time.Duration

	// Adaptive batch sizing (shared bounds for flusher and dispatcher).
	BatchMin      int
	BatchMax      int
	TargetLatency time.Duration

	// Dispatcher.
	PubTimeout           time.Duration
	SystemFailureBackoff time.Duration
	MaxBackoff           time.Duration
	IdleSleep            time.Duration

	// Circuit breaker around the persistence core.
	BreakerFailureRate  float64
	BreakerOpenDuration time.Duration
	BreakerHalfOpenMax  int
	BreakerMinRequests  int

	// Source stream identity.
	StreamName    string
	StreamSubject string
	ConsumerName  string
	FetchBatch    int

	// Downstream bus.
	DestTopic      string
	LifecycleTopic string

	// Admin HTTP + level-4 failure log.
	HTTPPort       int
	FailureLogPath string
}

// Load reads the environment and validates the result. A validation error
// here is fatal at startup; nothing else sanity-checks these values later.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("BUFFER_CAPACITY", 10000)
	v.SetDefault("FLUSH_INTERVAL_MS", 200)
	v.SetDefault("ENQUEUE_WAIT_MS", 250)
	v.SetDefault("FLUSH_RETRY_MS", 1000)
	v.SetDefault("BATCH_MIN", 25)
	v.SetDefault("BATCH_MAX", 500)
	v.SetDefault("TARGET_LATENCY_MS", 150)
	v.SetDefault("PUB_TIMEOUT_MS", 5000)
	v.SetDefault("SYSTEM_FAILURE_BACKOFF_MS", 500)
	v.SetDefault("MAX_BACKOFF_MS", 30000)
	v.SetDefault("IDLE_SLEEP_MS", 50)
	v.SetDefault("BREAKER_FAILURE_RATE", 0.5)
	v.SetDefault("BREAKER_OPEN_DURATION_MS", 10000)
	v.SetDefault("BREAKER_HALF_OPEN_MAX", 1)
	v.SetDefault("BREAKER_MIN_REQUESTS", 10)
	v.SetDefault("STREAM_NAME", "TRADE_CAPTURE")
	v.SetDefault("STREAM_SUBJECT", "trade.events.raw")
	v.SetDefault("CONSUMER_NAME", "trade-capture-ingress")
	v.SetDefault("FETCH_BATCH", 32)
	v.SetDefault("DEST_TOPIC", "pms.trade.capture.raw")
	v.SetDefault("LIFECYCLE_TOPIC", "lifecycle.event")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("FAILURE_LOG_PATH", "trade-capture-failures.log")

	cfg := &Config{
		BufferCapacity:       v.GetInt("BUFFER_CAPACITY"),
		FlushInterval:        time.Duration(v.GetInt("FLUSH_INTERVAL_MS")) * time.Millisecond,
		EnqueueWait:          time.Duration(v.GetInt("ENQUEUE_WAIT_MS")) * time.Millisecond,
		FlushRetry:           time.Duration(v.GetInt("FLUSH_RETRY_MS")) * time.Millisecond,
		BatchMin:             v.GetInt("BATCH_MIN"),
		BatchMax:             v.GetInt("BATCH_MAX"),
		TargetLatency:        time.Duration(v.GetInt("TARGET_LATENCY_MS")) * time.Millisecond,
		PubTimeout:           time.Duration(v.GetInt("PUB_TIMEOUT_MS")) * time.Millisecond,
		SystemFailureBackoff: time.Duration(v.GetInt("SYSTEM_FAILURE_BACKOFF_MS")) * time.Millisecond,
		MaxBackoff:           time.Duration(v.GetInt("MAX_BACKOFF_MS")) * time.Millisecond,
		IdleSleep:            time.Duration(v.GetInt("IDLE_SLEEP_MS")) * time.Millisecond,
		BreakerFailureRate:   v.GetFloat64("BREAKER_FAILURE_RATE"),
		BreakerOpenDuration:  time.Duration(v.GetInt("BREAKER_OPEN_DURATION_MS")) * time.Millisecond,
		BreakerHalfOpenMax:   v.GetInt("BREAKER_HALF_OPEN_MAX"),
		BreakerMinRequests:   v.GetInt("BREAKER_MIN_REQUESTS"),
		StreamName:           v.GetString("STREAM_NAME"),
		StreamSubject:        v.GetString("STREAM_SUBJECT"),
		ConsumerName:         v.GetString("CONSUMER_NAME"),
		FetchBatch:           v.GetInt("FETCH_BATCH"),
		DestTopic:            v.GetString("DEST_TOPIC"),
		LifecycleTopic:       v.GetString("LIFECYCLE_TOPIC"),
		HTTPPort:             v.GetInt("HTTP_PORT"),
		FailureLogPath:       v.GetString("FAILURE_LOG_PATH"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BufferCapacity < 1 {
		return fmt.Errorf("BUFFER_CAPACITY must be >= 1, got %d", c.BufferCapacity)
	}
	if c.BatchMin < 1 {
		return fmt.Errorf("BATCH_MIN must be >= 1, got %d", c.BatchMin)
	}
	if c.BatchMax < c.BatchMin {
		return fmt.Errorf("BATCH_MAX (%d) must be >= BATCH_MIN (%d)", c.BatchMax, c.BatchMin)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("FLUSH_INTERVAL_MS must be positive")
	}
	if c.PubTimeout <= 0 {
		return fmt.Errorf("PUB_TIMEOUT_MS must be positive")
	}
	if c.SystemFailureBackoff <= 0 {
		return fmt.Errorf("SYSTEM_FAILURE_BACKOFF_MS must be positive")
	}
	if c.MaxBackoff < c.SystemFailureBackoff {
		return fmt.Errorf("MAX_BACKOFF_MS (%v) must be >= SYSTEM_FAILURE_BACKOFF_MS (%v)",
			c.MaxBackoff, c.SystemFailureBackoff)
	}
	if c.BreakerFailureRate <= 0 || c.BreakerFailureRate > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATE must be in (0, 1], got %v", c.BreakerFailureRate)
	}
	if c.BreakerHalfOpenMax < 1 {
		return fmt.Errorf("BREAKER_HALF_OPEN_MAX must be >= 1, got %d", c.BreakerHalfOpenMax)
	}
	if c.BreakerMinRequests < 1 {
		return fmt.Errorf("BREAKER_MIN_REQUESTS must be >= 1, got %d", c.BreakerMinRequests)
	}
	if c.FetchBatch < 1 {
		return fmt.Errorf("FETCH_BATCH must be >= 1, got %d", c.FetchBatch)
	}
	if c.StreamName == "" || c.StreamSubject == "" || c.ConsumerName == "" {
		return fmt.Errorf("STREAM_NAME, STREAM_SUBJECT and CONSUMER_NAME must not be empty")
	}
	if c.DestTopic == "" {
		return fmt.Errorf("DEST_TOPIC must not be empty")
	}
	if c.FailureLogPath == "" {
		return fmt.Errorf("FAILURE_LOG_PATH must not be empty")
	}
	return nil
}
