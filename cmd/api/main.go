package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/twmb/franz-go/pkg/sr"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/batch"
	"github.com/n1shan1/pms-trade-capture/internal/breaker"
	"github.com/n1shan1/pms-trade-capture/internal/config"
	"github.com/n1shan1/pms-trade-capture/internal/consumer"
	"github.com/n1shan1/pms-trade-capture/internal/dispatcher"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
	"github.com/n1shan1/pms-trade-capture/internal/handler"
	"github.com/n1shan1/pms-trade-capture/internal/ingest"
	"github.com/n1shan1/pms-trade-capture/internal/lifecycle"
	"github.com/n1shan1/pms-trade-capture/internal/natsclient"
	"github.com/n1shan1/pms-trade-capture/internal/publisher"
	"github.com/n1shan1/pms-trade-capture/internal/repository"
	"github.com/n1shan1/pms-trade-capture/internal/service"
	"github.com/n1shan1/pms-trade-capture/internal/telemetry"
	"github.com/n1shan1/pms-trade-capture/migrations"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration invalid", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── OpenTelemetry ──────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "pms-trade-capture", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		mp, err := telemetry.InitMeterProvider(context.Background(), "pms-trade-capture", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
		}
		logger.Info("OTel telemetry initialized", zap.String("endpoint", otelEndpoint))
	}
	metrics := telemetry.NewPipelineMetrics()

	// ── Vault secrets ──────────────────────────────────────────────────────
	secrets, err := config.LoadSecrets()
	if err != nil {
		logger.Fatal("failed to load secrets from Vault", zap.Error(err))
	}

	// ── Database ───────────────────────────────────────────────────────────
	poolCfg, err := pgxpool.ParseConfig(secrets.PGURL)
	if err != nil {
		logger.Fatal("failed to parse PG_URL", zap.Error(err))
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Up(context.Background(), pool); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}
	logger.Info("database ready (OTel-instrumented, schema migrated)")

	// ── NATS JetStream ─────────────────────────────────────────────────────
	natsClient, err := natsclient.NewClient(secrets.NATSURL, logger)
	if err != nil {
		logger.Fatal("NATS initialization failed", zap.Error(err))
	}
	defer natsClient.Close()

	if err := natsClient.ProvisionStream(cfg.StreamName, cfg.StreamSubject); err != nil {
		logger.Fatal("NATS stream provisioning failed", zap.Error(err))
	}

	// ── Kafka + schema registry ────────────────────────────────────────────
	kafkaClient, err := publisher.NewClient(strings.Split(secrets.KafkaBrokers, ","), cfg.PubTimeout)
	if err != nil {
		logger.Fatal("Kafka client initialization failed", zap.Error(err))
	}
	defer kafkaClient.Close()

	registry, err := sr.NewClient(sr.URLs(secrets.SchemaRegistryURL))
	if err != nil {
		logger.Fatal("schema registry client initialization failed", zap.Error(err))
	}
	envelope, err := publisher.NewEnvelope(context.Background(), registry, cfg.DestTopic)
	if err != nil {
		logger.Fatal("schema registration failed", zap.Error(err))
	}
	logger.Info("destination schema registered",
		zap.String("topic", cfg.DestTopic),
		zap.Int("schema_id", envelope.SchemaID()),
	)

	// ── Persistence core ───────────────────────────────────────────────────
	store := repository.NewStore(pool)
	auditRepo := repository.NewAuditRepo()
	outboxRepo := repository.NewOutboxRepo()
	quarantineRepo := repository.NewQuarantineRepo()
	failureLog := repository.NewDiskFailureLog(cfg.FailureLogPath, logger)

	guard := breaker.New(breaker.Settings{
		Name:         "persistence",
		FailureRate:  cfg.BreakerFailureRate,
		OpenDuration: cfg.BreakerOpenDuration,
		HalfOpenMax:  cfg.BreakerHalfOpenMax,
		MinRequests:  cfg.BreakerMinRequests,
	}, repository.IsDataError, logger)

	emitter := lifecycle.NewEmitter(kafkaClient, cfg.LifecycleTopic, logger)
	captureSvc := service.NewCaptureService(store, auditRepo, outboxRepo, quarantineRepo,
		failureLog, guard, emitter, metrics, logger)

	// ── Ingestion pipeline ─────────────────────────────────────────────────
	gate := &consumerGate{}
	flushSizer := batch.NewSizer(cfg.BatchMin, cfg.BatchMax, cfg.TargetLatency)
	buf := ingest.New(captureSvc, gate, gate, captureSvc, flushSizer, ingest.Config{
		Capacity:      cfg.BufferCapacity,
		FlushInterval: cfg.FlushInterval,
		EnqueueWait:   cfg.EnqueueWait,
		FlushRetry:    cfg.FlushRetry,
		MaxBatch:      cfg.BatchMax,
	}, logger)

	// MaxAckPending must exceed the buffer so the ack ceiling can never
	// stall fetching before backpressure pauses it.
	tradeConsumer := consumer.NewTradeConsumer(natsClient, buf, consumer.Config{
		Stream:        cfg.StreamName,
		Subject:       cfg.StreamSubject,
		Durable:       cfg.ConsumerName,
		FetchBatch:    cfg.FetchBatch,
		MaxAckPending: cfg.BufferCapacity + cfg.FetchBatch,
	}, logger)
	gate.c = tradeConsumer

	// ── Outbox dispatch ────────────────────────────────────────────────────
	engine := publisher.NewEngine(kafkaClient, envelope, cfg.DestTopic, cfg.PubTimeout, logger)
	dispatchSizer := batch.NewSizer(cfg.BatchMin, cfg.BatchMax, cfg.TargetLatency)
	worker := dispatcher.NewWorker(store, outboxRepo, engine, dispatchSizer, metrics, dispatcher.Config{
		InitialBackoff: cfg.SystemFailureBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		IdleSleep:      cfg.IdleSleep,
	}, logger)

	var pipeline sync.WaitGroup
	pipeline.Add(2)
	go func() {
		defer pipeline.Done()
		buf.Run(ctx)
	}()
	go func() {
		defer pipeline.Done()
		worker.Run(ctx)
	}()

	if err := tradeConsumer.Start(ctx); err != nil {
		logger.Fatal("failed to start trade consumer", zap.Error(err))
	}
	logger.Info("trade capture pipeline started",
		zap.String("stream", cfg.StreamName),
		zap.String("subject", cfg.StreamSubject),
	)

	// ── HTTP Server ────────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("pms-trade-capture"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("HTTP request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	handler.NewPipelineHandler(buf, tradeConsumer, guard, worker, logger).Register(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("admin HTTP server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	// ── Graceful Shutdown ──────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	// Stop fetching, let the flusher land its backlog and the dispatcher
	// finish its iteration; both exit through the cancelled context.
	cancel()
	pipeline.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Echo shutdown error", zap.Error(err))
	}

	// Lifecycle events are produced asynchronously; give them one bounded
	// flush before the client closes.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := kafkaClient.Flush(flushCtx); err != nil {
		logger.Warn("Kafka producer flush incomplete", zap.Error(err))
	}

	logger.Info("trade capture shut down cleanly")
}

// consumerGate breaks the construction cycle between the buffer and the
// consumer: the buffer backpressures and acknowledges through the consumer,
// while the consumer enqueues into the buffer. The gate is pointed at the
// consumer as soon as both exist, before anything runs.
type consumerGate struct {
	c *consumer.TradeConsumer
}

func (g *consumerGate) Pause()  { g.c.Pause() }
func (g *consumerGate) Resume() { g.c.Resume() }

func (g *consumerGate) StoreOffset(h domain.AckHandle) { g.c.StoreOffset(h) }
