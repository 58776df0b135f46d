package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/n1shan1/pms-trade-capture/internal/batch"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// ── fakes ─────────────────────────────────────────────────────────────────

type fakePersister struct {
	mu      sync.Mutex
	batches [][]domain.PendingMessage
	errs    []error // popped per call; empty means success
}

func (f *fakePersister) PersistBatch(_ context.Context, msgs []domain.PendingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]domain.PendingMessage(nil), msgs...))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakePersister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakePersister) batchAt(i int) []domain.PendingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[i]
}

type fakeOffsets struct {
	mu      sync.Mutex
	handles []domain.AckHandle
}

func (f *fakeOffsets) StoreOffset(h domain.AckHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handles = append(f.handles, h)
}

func (f *fakeOffsets) stored() []domain.AckHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AckHandle(nil), f.handles...)
}

type fakeStream struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (f *fakeStream) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeStream) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
}

func (f *fakeStream) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes
}

type fakeSink struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeSink) QuarantineDirect(_ context.Context, _ *domain.PendingMessage, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeSink) quarantined() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

// ── helpers ───────────────────────────────────────────────────────────────

type bufferParts struct {
	persister *fakePersister
	offsets   *fakeOffsets
	stream    *fakeStream
	sink      *fakeSink
	sizer     *batch.Sizer
}

func newBuffer(t *testing.T, cfg Config, sizer *batch.Sizer) (*Buffer, *bufferParts) {
	t.Helper()
	parts := &bufferParts{
		persister: &fakePersister{},
		offsets:   &fakeOffsets{},
		stream:    &fakeStream{},
		sink:      &fakeSink{},
		sizer:     sizer,
	}
	b := New(parts.persister, parts.offsets, parts.stream, parts.sink, sizer, cfg, zaptest.NewLogger(t))
	return b, parts
}

func quickConfig() Config {
	return Config{
		Capacity:      64,
		FlushInterval: 20 * time.Millisecond,
		EnqueueWait:   30 * time.Millisecond,
		FlushRetry:    20 * time.Millisecond,
		MaxBatch:      8,
	}
}

func streamMessage(offset int64, ack domain.AckHandle) domain.PendingMessage {
	return domain.NewPendingMessage(&domain.TradeEvent{
		TradeID:       uuid.New(),
		PortfolioID:   uuid.New(),
		Symbol:        "AAPL",
		Side:          domain.SideBuy,
		PricePerStock: 10,
		Quantity:      1,
		EventUnixMs:   1700000000000,
	}, []byte("frame"), offset, ack)
}

type fakeHandle struct{ id int }

// runBuffer starts the flusher and returns a stop function that cancels it
// and waits for it to exit.
func runBuffer(b *Buffer) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// ── flush triggers ────────────────────────────────────────────────────────

func TestBuffer_FlushOnTimer(t *testing.T) {
	b, parts := newBuffer(t, quickConfig(), batch.NewSizer(25, 500, time.Hour))
	stop := runBuffer(b)
	defer stop()

	h := &fakeHandle{id: 1}
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, h)))

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 1 },
		time.Second, 5*time.Millisecond)
	require.Len(t, parts.persister.batchAt(0), 1)
	assert.Eventually(t, func() bool { return len(parts.offsets.stored()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, h, parts.offsets.stored()[0])
}

func TestBuffer_FlushOnSize(t *testing.T) {
	cfg := quickConfig()
	cfg.FlushInterval = time.Hour // only the size trigger can fire
	b, parts := newBuffer(t, cfg, batch.NewSizer(2, 8, time.Hour))
	stop := runBuffer(b)
	defer stop()

	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, &fakeHandle{id: 1})))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(2, &fakeHandle{id: 2})))

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 1 },
		time.Second, 5*time.Millisecond)
	got := parts.persister.batchAt(0)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Offset, "flush preserves arrival order")
	assert.Equal(t, int64(2), got[1].Offset)
}

// ── retry semantics ───────────────────────────────────────────────────────

func TestBuffer_SystemFailure_RetriesSameBatch(t *testing.T) {
	cfg := quickConfig()
	cfg.FlushInterval = time.Hour
	b, parts := newBuffer(t, cfg, batch.NewSizer(2, 8, time.Hour))
	parts.persister.errs = []error{errors.New("connection refused")}
	stop := runBuffer(b)
	defer stop()

	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, &fakeHandle{id: 1})))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(2, &fakeHandle{id: 2})))

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, parts.persister.batchAt(0), parts.persister.batchAt(1),
		"the identical batch is presented again")

	assert.Eventually(t, func() bool {
		pauses, resumes := parts.stream.counts()
		return pauses == 1 && resumes == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(parts.offsets.stored()) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestBuffer_CircuitOpen_HoldsBatchWithoutOffsets(t *testing.T) {
	cfg := quickConfig()
	cfg.FlushInterval = time.Hour
	b, parts := newBuffer(t, cfg, batch.NewSizer(2, 8, time.Hour))
	parts.persister.errs = []error{domain.ErrCallNotPermitted, domain.ErrCallNotPermitted}
	stop := runBuffer(b)
	defer stop()

	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, &fakeHandle{id: 1})))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(2, &fakeHandle{id: 2})))

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 3 },
		time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(parts.offsets.stored()) == 1 },
		time.Second, 5*time.Millisecond)
	pauses, _ := parts.stream.counts()
	assert.Equal(t, 1, pauses, "one pause covers the whole retry run")
}

// ── offset selection ──────────────────────────────────────────────────────

func TestBuffer_OffsetSkipsReplayTail(t *testing.T) {
	cfg := quickConfig()
	b, parts := newBuffer(t, cfg, batch.NewSizer(25, 500, time.Hour))

	h := &fakeHandle{id: 1}
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(5, h)))
	replayed := domain.NewInvalidMessage([]byte{0xff}, domain.ReplayOffset, "invalid payload: truncated frame", nil)
	require.NoError(t, b.Enqueue(context.Background(), replayed))

	stop := runBuffer(b)
	defer stop()

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 1 },
		time.Second, 5*time.Millisecond)
	require.Len(t, parts.persister.batchAt(0), 2)
	assert.Eventually(t, func() bool { return len(parts.offsets.stored()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, h, parts.offsets.stored()[0],
		"the newest stream handle is stored, replay tail skipped")
}

func TestBuffer_AllReplayBatch_StoresNoOffset(t *testing.T) {
	b, parts := newBuffer(t, quickConfig(), batch.NewSizer(25, 500, time.Hour))
	replayed := domain.NewInvalidMessage([]byte{0xff}, domain.ReplayOffset, "invalid payload: truncated frame", nil)
	require.NoError(t, b.Enqueue(context.Background(), replayed))

	stop := runBuffer(b)
	defer stop()

	assert.Eventually(t, func() bool { return parts.persister.calls() >= 1 },
		time.Second, 5*time.Millisecond)
	assert.Empty(t, parts.offsets.stored())
}

// ── backpressure and shutdown ─────────────────────────────────────────────

func TestBuffer_EnqueueBackpressure_PausesAndBlocks(t *testing.T) {
	cfg := quickConfig()
	cfg.Capacity = 1
	b, parts := newBuffer(t, cfg, batch.NewSizer(25, 500, time.Hour))

	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, &fakeHandle{id: 1})))

	unblocked := make(chan struct{})
	go func() {
		defer close(unblocked)
		_ = b.Enqueue(context.Background(), streamMessage(2, &fakeHandle{id: 2}))
	}()

	// The grace wait expires and the producer escalates to a stream pause.
	assert.Eventually(t, func() bool {
		pauses, _ := parts.stream.counts()
		return pauses == 1
	}, time.Second, 5*time.Millisecond)

	// Making room releases the blocked producer, which resumes the stream.
	<-b.ch
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("enqueue did not unblock after space was freed")
	}
	_, resumes := parts.stream.counts()
	assert.Equal(t, 1, resumes)
	assert.Equal(t, 1, b.Depth())
}

func TestBuffer_ShutdownOverflow_Quarantined(t *testing.T) {
	cfg := quickConfig()
	cfg.Capacity = 1
	b, parts := newBuffer(t, cfg, batch.NewSizer(25, 500, time.Hour))
	b.draining.Store(true)

	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, &fakeHandle{id: 1})))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(2, &fakeHandle{id: 2})))

	require.Len(t, parts.sink.quarantined(), 1)
	assert.Equal(t, "buffer-full shutdown", parts.sink.quarantined()[0])
	pauses, _ := parts.stream.counts()
	assert.Zero(t, pauses, "no backpressure during drain")
}

func TestBuffer_ShutdownFlushesBacklog(t *testing.T) {
	cfg := quickConfig()
	cfg.FlushInterval = time.Hour
	b, parts := newBuffer(t, cfg, batch.NewSizer(25, 500, time.Hour))
	stop := runBuffer(b)

	h := &fakeHandle{id: 1}
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, h)))
	stop()

	require.Equal(t, 1, parts.persister.calls(), "final flush lands the backlog")
	require.Len(t, parts.offsets.stored(), 1)
	assert.Equal(t, h, parts.offsets.stored()[0])
}

// ── sizer coupling ────────────────────────────────────────────────────────

func TestBuffer_IdleFlushResetsSizer(t *testing.T) {
	sizer := batch.NewSizer(2, 8, time.Hour)
	sizer.Observe(time.Millisecond, 2) // fast batch doubled the size
	require.Equal(t, 4, sizer.Current())

	b, _ := newBuffer(t, quickConfig(), sizer)
	stop := runBuffer(b)
	defer stop()

	assert.Eventually(t, func() bool { return sizer.Current() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestBuffer_Depth(t *testing.T) {
	b, _ := newBuffer(t, quickConfig(), batch.NewSizer(25, 500, time.Hour))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(1, nil)))
	require.NoError(t, b.Enqueue(context.Background(), streamMessage(2, nil)))
	assert.Equal(t, 2, b.Depth())
}
