// Package ingest owns the in-memory stage between the stream consumer and
// the persistence core: a bounded buffer, the single flusher goroutine that
// drains it, and the coupling between flush success and offset
// acknowledgement.
//
// The contract with the stream is strict. An offset is stored only after
// the flush containing its message returned success, and a flush that fails
// for system reasons retries the identical batch until it lands. The buffer
// never drops a message; when full it pushes back by pausing the stream and
// blocking the producer.
package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/batch"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// finalFlushTimeout bounds the one persistence attempt made for messages
// still buffered when shutdown begins.
const finalFlushTimeout = 5 * time.Second

// BatchPersister lands a flushed batch durably. A nil return means every
// message is accounted for; any error means retry the same batch.
type BatchPersister interface {
	PersistBatch(ctx context.Context, batch []domain.PendingMessage) error
}

// OffsetStore acknowledges source offsets cumulatively through the handle
// of the newest persisted message.
type OffsetStore interface {
	StoreOffset(handle domain.AckHandle)
}

// StreamControl pauses and resumes the upstream fetch loop.
type StreamControl interface {
	Pause()
	Resume()
}

// ShutdownSink quarantines messages that cannot wait out a full buffer
// while the process is draining.
type ShutdownSink interface {
	QuarantineDirect(ctx context.Context, m *domain.PendingMessage, reason string)
}

// Config bounds the buffer and its flush cadence.
type Config struct {
	Capacity      int
	FlushInterval time.Duration
	EnqueueWait   time.Duration
	FlushRetry    time.Duration
	MaxBatch      int
}

// Buffer is the bounded ingestion stage. One flusher goroutine drains it;
// producers are the stream consumer (serial) and the admin replay endpoint.
type Buffer struct {
	ch   chan domain.PendingMessage
	kick chan struct{}

	persister BatchPersister
	offsets   OffsetStore
	stream    StreamControl
	sink      ShutdownSink
	sizer     *batch.Sizer
	cfg       Config
	log       *zap.Logger

	draining atomic.Bool
}

func New(
	persister BatchPersister,
	offsets OffsetStore,
	stream StreamControl,
	sink ShutdownSink,
	sizer *batch.Sizer,
	cfg Config,
	log *zap.Logger,
) *Buffer {
	return &Buffer{
		ch:        make(chan domain.PendingMessage, cfg.Capacity),
		kick:      make(chan struct{}, 1),
		persister: persister,
		offsets:   offsets,
		stream:    stream,
		sink:      sink,
		sizer:     sizer,
		cfg:       cfg,
		log:       log,
	}
}

// Enqueue adds one message. When the buffer is full it grants a short grace
// wait, then pauses the stream and blocks until the flusher makes room.
// During a drain the message goes straight to quarantine instead, because
// the flusher may already be gone.
func (b *Buffer) Enqueue(ctx context.Context, msg domain.PendingMessage) error {
	select {
	case b.ch <- msg:
		b.signalFlush()
		return nil
	default:
	}

	wait := time.NewTimer(b.cfg.EnqueueWait)
	defer wait.Stop()
	select {
	case b.ch <- msg:
		b.signalFlush()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wait.C:
	}

	if b.draining.Load() {
		b.log.Warn("buffer full during shutdown, message quarantined",
			zap.Int64("offset", msg.Offset),
		)
		b.sink.QuarantineDirect(ctx, &msg, "buffer-full shutdown")
		return nil
	}

	b.stream.Pause()
	defer b.stream.Resume()
	select {
	case b.ch <- msg:
		b.signalFlush()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth is the current backlog, for status snapshots.
func (b *Buffer) Depth() int {
	return len(b.ch)
}

// signalFlush nudges the flusher once the backlog reaches the adaptive
// batch size, so a hot stream flushes on size instead of waiting out the
// timer.
func (b *Buffer) signalFlush() {
	if len(b.ch) < b.sizer.Current() {
		return
	}
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Run is the flusher loop; it owns every PersistBatch call and therefore
// the order offsets are stored in. Cancel ctx to stop: the loop marks the
// buffer draining, gives the remaining backlog one persistence attempt, and
// returns. Whatever it could not land stays unacknowledged on the stream
// and replays on the next start.
func (b *Buffer) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.draining.Store(true)
			b.finalFlush()
			return
		case <-ticker.C:
		case <-b.kick:
		}
		b.flush(ctx)
	}
}

// flush drains one batch and retries it until the persistence core accepts
// it. The retry loop is the answer to an open circuit or a dead database:
// pause the stream, wait, present the identical batch again. Only shutdown
// breaks the loop, leaving the batch to stream redelivery.
func (b *Buffer) flush(ctx context.Context) {
	msgs := b.drain()
	if len(msgs) == 0 {
		b.sizer.Reset()
		return
	}

	start := time.Now()
	paused := false
	for {
		// A cancellation must not abort a batch the database is mid-way
		// through, so each attempt runs detached; Run observes ctx on its
		// next select.
		err := b.persister.PersistBatch(context.WithoutCancel(ctx), msgs)
		if err == nil {
			break
		}
		if !paused {
			b.stream.Pause()
			paused = true
		}
		if errors.Is(err, domain.ErrCallNotPermitted) {
			b.log.Warn("persistence circuit open, batch held for retry",
				zap.Int("batch_size", len(msgs)),
			)
		} else {
			b.log.Error("batch persistence failed, batch held for retry",
				zap.Int("batch_size", len(msgs)),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			b.draining.Store(true)
			b.log.Warn("shutdown interrupted a failing flush, batch left for redelivery",
				zap.Int("batch_size", len(msgs)),
			)
			return
		case <-time.After(b.cfg.FlushRetry):
		}
	}

	if paused {
		b.stream.Resume()
	}
	b.ackThrough(msgs)
	b.sizer.Observe(time.Since(start), len(msgs))
}

// finalFlush gives messages still buffered at shutdown one bounded chance
// to land before they are surrendered to redelivery.
func (b *Buffer) finalFlush() {
	msgs := b.drain()
	if len(msgs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	if err := b.persister.PersistBatch(ctx, msgs); err != nil {
		b.log.Warn("final flush failed, batch left for redelivery",
			zap.Int("batch_size", len(msgs)),
			zap.Error(err),
		)
		return
	}
	b.ackThrough(msgs)
}

// drain removes up to MaxBatch messages, preserving arrival order.
func (b *Buffer) drain() []domain.PendingMessage {
	var out []domain.PendingMessage
	for len(out) < b.cfg.MaxBatch {
		select {
		case m := <-b.ch:
			out = append(out, m)
		default:
			return out
		}
	}
	return out
}

// ackThrough stores the offset of the newest stream-delivered message in
// the batch; cumulative acknowledgement covers everything before it.
// Replayed messages carry no handle and are skipped.
func (b *Buffer) ackThrough(msgs []domain.PendingMessage) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Ack != nil {
			b.offsets.StoreOffset(msgs[i].Ack)
			return
		}
	}
}
