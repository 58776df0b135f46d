// Package consumer pulls trade frames off the source stream and feeds the
// ingestion buffer. Offsets are acknowledged only after the buffer reports
// the containing batch durably persisted, so a crash replays instead of
// skipping.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/codec"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
	"github.com/n1shan1/pms-trade-capture/internal/natsclient"
)

const (
	fetchWait         = time.Second
	pausePollInterval = 100 * time.Millisecond
)

// Enqueuer is the buffer surface the consumer feeds.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg domain.PendingMessage) error
}

// acker is the acknowledgement surface of a delivered stream message, split
// out so offset bookkeeping is testable without a broker.
type acker interface {
	Ack(opts ...nats.AckOpt) error
}

// Config identifies the stream, the durable consumer and the fetch shape.
type Config struct {
	Stream        string
	Subject       string
	Durable       string
	FetchBatch    int
	MaxAckPending int
}

// TradeConsumer is the single-goroutine pull consumer. Delivery is serial:
// one frame is classified and buffered before the next is looked at, which
// is what lets a blocked Enqueue act as backpressure.
type TradeConsumer struct {
	nats   *natsclient.Client
	buffer Enqueuer
	cfg    Config
	log    *zap.Logger

	paused atomic.Bool

	mu      sync.Mutex
	unacked []acker
}

func NewTradeConsumer(nc *natsclient.Client, buffer Enqueuer, cfg Config, log *zap.Logger) *TradeConsumer {
	return &TradeConsumer{nats: nc, buffer: buffer, cfg: cfg, log: log}
}

// Start binds the durable pull consumer and launches the fetch loop. A
// fresh durable begins at the start of the stream; thereafter the server
// resumes from the ack floor.
func (c *TradeConsumer) Start(ctx context.Context) error {
	sub, err := c.nats.JS.PullSubscribe(c.cfg.Subject, c.cfg.Durable,
		nats.BindStream(c.cfg.Stream),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.MaxAckPending(c.cfg.MaxAckPending),
		// The ack window must outlive a breaker-open stall. Early
		// redelivery is harmless (duplicates absorb idempotently) but
		// inflates the buffer for nothing.
		nats.AckWait(5*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s/%s: %w", c.cfg.Stream, c.cfg.Durable, err)
	}

	c.log.Info("trade stream consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("subject", c.cfg.Subject),
		zap.String("durable", c.cfg.Durable),
	)
	go c.fetchLoop(ctx, sub)
	return nil
}

func (c *TradeConsumer) fetchLoop(ctx context.Context, sub *nats.Subscription) {
	for {
		if ctx.Err() != nil {
			c.log.Info("trade stream consumer stopped")
			return
		}
		if c.paused.Load() {
			sleepCtx(ctx, pausePollInterval)
			continue
		}

		// Each fetch waits at most fetchWait so the loop stays responsive
		// to pause and shutdown even on an idle stream.
		fctx, cancel := context.WithTimeout(ctx, fetchWait)
		msgs, err := sub.Fetch(c.cfg.FetchBatch, nats.Context(fctx))
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) &&
				!errors.Is(err, context.Canceled) {
				c.log.Warn("stream fetch failed", zap.Error(err))
				sleepCtx(ctx, fetchWait)
			}
			continue
		}
		for _, msg := range msgs {
			c.deliver(ctx, msg)
		}
	}
}

// deliver unwraps the JetStream metadata and hands the frame over.
func (c *TradeConsumer) deliver(ctx context.Context, msg *nats.Msg) {
	meta, err := msg.Metadata()
	if err != nil {
		c.log.Error("stream message carries no metadata", zap.Error(err))
		return
	}
	c.handleFrame(ctx, msg.Data, int64(meta.Sequence.Stream), msg)
}

// handleFrame classifies one frame and enqueues it. Invalid frames are not
// dropped here; they travel the same path and end up in the audit trail and
// quarantine. The ack handle is tracked before Enqueue because the flusher
// may persist and acknowledge the batch before Enqueue even returns.
func (c *TradeConsumer) handleFrame(ctx context.Context, raw []byte, offset int64, ack acker) {
	var pending domain.PendingMessage
	if trade, reason := codec.Classify(raw); reason != "" {
		c.log.Warn("undecodable frame received",
			zap.Int64("offset", offset),
			zap.String("reason", reason),
		)
		pending = domain.NewInvalidMessage(raw, offset, reason, ack)
	} else {
		pending = domain.NewPendingMessage(trade, raw, offset, ack)
	}

	c.mu.Lock()
	c.unacked = append(c.unacked, ack)
	c.mu.Unlock()

	if err := c.buffer.Enqueue(ctx, pending); err != nil {
		c.log.Warn("frame not buffered, the stream will redeliver it",
			zap.Int64("offset", offset),
			zap.Error(err),
		)
	}
}

// StoreOffset acknowledges every delivered message up to and including the
// handle, which is cumulative offset tracking rebuilt on an explicit-ack
// consumer. A nil handle (replayed message) and a handle already covered by
// an earlier call are both no-ops. Ack failures are logged, not returned:
// the worst case is a redelivery the idempotent persistence path absorbs.
func (c *TradeConsumer) StoreOffset(handle domain.AckHandle) {
	target, ok := handle.(acker)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := -1
	for i, pending := range c.unacked {
		if pending == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for _, pending := range c.unacked[:idx+1] {
		if err := pending.Ack(); err != nil {
			c.log.Warn("offset ack failed, message will be redelivered", zap.Error(err))
		}
	}
	c.unacked = append(c.unacked[:0:0], c.unacked[idx+1:]...)
}

// Pause stops new fetches. Advisory: frames already fetched still deliver,
// and a blocked Enqueue holds the loop regardless of the flag.
func (c *TradeConsumer) Pause() {
	if c.paused.CompareAndSwap(false, true) {
		c.log.Warn("backpressure engaged, stream consumption paused")
	}
}

// Resume restarts fetching once the pressure that paused the stream clears.
func (c *TradeConsumer) Resume() {
	if c.paused.CompareAndSwap(true, false) {
		c.log.Info("backpressure released, stream consumption resumed")
	}
}

// IsPaused reports the advisory pause flag for status snapshots.
func (c *TradeConsumer) IsPaused() bool {
	return c.paused.Load()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
