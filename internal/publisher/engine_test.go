package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sr"
	"go.uber.org/zap/zaptest"

	"github.com/n1shan1/pms-trade-capture/internal/codec"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// ── helpers ───────────────────────────────────────────────────────────────

// fakeProducer acknowledges every record unless produce says otherwise.
type fakeProducer struct {
	records      []*kgo.Record
	hadDeadlines bool
	produce      func(rec *kgo.Record) error
}

func (f *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var out kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		if _, ok := ctx.Deadline(); ok {
			f.hadDeadlines = true
		}
		var err error
		if f.produce != nil {
			err = f.produce(r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: err})
	}
	return out
}

func newEngine(t *testing.T, producer *fakeProducer) *Engine {
	t.Helper()
	envelope := &Envelope{schemaID: 7}
	return NewEngine(producer, envelope, "pms.trade.capture.raw", 5*time.Second, zaptest.NewLogger(t))
}

func outboxEntry(id int64, portfolio uuid.UUID) domain.OutboxEntry {
	ev := &domain.TradeEvent{
		TradeID:       uuid.New(),
		PortfolioID:   portfolio,
		Symbol:        "AAPL",
		Side:          domain.SideBuy,
		PricePerStock: 187.5,
		Quantity:      10,
		EventUnixMs:   1700000000000,
	}
	return domain.OutboxEntry{
		ID:          id,
		PortfolioID: portfolio,
		TradeID:     ev.TradeID,
		Payload:     codec.Encode(ev),
	}
}

// ── envelope ──────────────────────────────────────────────────────────────

func TestEnvelope_WrapRoundTrip(t *testing.T) {
	envelope := &Envelope{schemaID: 42}
	payload := []byte{0x0a, 0x03, 'a', 'b', 'c'}

	wrapped, err := envelope.Wrap(payload)
	require.NoError(t, err)
	require.Greater(t, len(wrapped), len(payload))
	assert.Equal(t, byte(0), wrapped[0], "confluent magic byte")

	var header sr.ConfluentHeader
	id, rest, err := header.DecodeID(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	index, rest, err := header.DecodeIndex(rest, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, index)
	assert.Equal(t, payload, rest)
}

// ── engine ────────────────────────────────────────────────────────────────

func TestEngine_ProcessBatch_AllPublished(t *testing.T) {
	producer := &fakeProducer{}
	engine := newEngine(t, producer)
	portfolio := uuid.New()
	entries := []domain.OutboxEntry{
		outboxEntry(1, portfolio),
		outboxEntry(2, portfolio),
		outboxEntry(3, portfolio),
	}

	result := engine.ProcessBatch(context.Background(), entries)

	assert.Equal(t, domain.ResultSuccess, result.Kind)
	assert.Equal(t, []int64{1, 2, 3}, result.SuccessfulIDs)
	require.Len(t, producer.records, 3)
	for i, rec := range producer.records {
		assert.Equal(t, "pms.trade.capture.raw", rec.Topic)
		assert.Equal(t, portfolio.String(), string(rec.Key), "partition key is the portfolio")

		var header sr.ConfluentHeader
		id, rest, err := header.DecodeID(rec.Value)
		require.NoError(t, err)
		assert.Equal(t, 7, id)
		_, rest, err = header.DecodeIndex(rest, 1)
		require.NoError(t, err)
		assert.Equal(t, entries[i].Payload, rest, "canonical bytes pass through untouched")
	}
	assert.True(t, producer.hadDeadlines, "every publish carries the timeout")
}

func TestEngine_ProcessBatch_UndecodablePayload_PoisonPill(t *testing.T) {
	producer := &fakeProducer{}
	engine := newEngine(t, producer)
	portfolio := uuid.New()
	entries := []domain.OutboxEntry{
		outboxEntry(1, portfolio),
		{ID: 2, PortfolioID: portfolio, TradeID: uuid.New(), Payload: []byte{0xff, 0x01}},
		outboxEntry(3, portfolio),
	}

	result := engine.ProcessBatch(context.Background(), entries)

	assert.Equal(t, domain.ResultPoisonPill, result.Kind)
	assert.Equal(t, []int64{1}, result.SuccessfulIDs)
	require.NotNil(t, result.Poison)
	assert.Equal(t, int64(2), result.Poison.EntryID)
	assert.Contains(t, result.Poison.Reason, "undecodable outbox payload")
	assert.Len(t, producer.records, 1, "nothing after the poison pill is attempted")
}

func TestEngine_ProcessBatch_BrokerRejectsRecord_PoisonPill(t *testing.T) {
	producer := &fakeProducer{}
	producer.produce = func(rec *kgo.Record) error {
		if len(producer.records) == 2 {
			return kerr.MessageTooLarge
		}
		return nil
	}
	engine := newEngine(t, producer)
	portfolio := uuid.New()
	entries := []domain.OutboxEntry{
		outboxEntry(1, portfolio),
		outboxEntry(2, portfolio),
		outboxEntry(3, portfolio),
	}

	result := engine.ProcessBatch(context.Background(), entries)

	assert.Equal(t, domain.ResultPoisonPill, result.Kind)
	assert.Equal(t, []int64{1}, result.SuccessfulIDs)
	require.NotNil(t, result.Poison)
	assert.Equal(t, int64(2), result.Poison.EntryID)
	assert.Contains(t, result.Poison.Reason, "record too large")
	assert.Len(t, producer.records, 2)
}

func TestEngine_ProcessBatch_Timeout_SystemFailureHaltsBatch(t *testing.T) {
	producer := &fakeProducer{
		produce: func(*kgo.Record) error { return context.DeadlineExceeded },
	}
	engine := newEngine(t, producer)
	entries := []domain.OutboxEntry{
		outboxEntry(1, uuid.New()),
		outboxEntry(2, uuid.New()),
	}

	result := engine.ProcessBatch(context.Background(), entries)

	assert.Equal(t, domain.ResultSystemFailure, result.Kind)
	assert.Empty(t, result.SuccessfulIDs)
	assert.Nil(t, result.Poison)
	assert.Len(t, producer.records, 1, "the batch halts at the first system failure")
}

func TestEngine_ProcessBatch_RetriableBrokerError_SystemFailure(t *testing.T) {
	producer := &fakeProducer{}
	producer.produce = func(rec *kgo.Record) error {
		if len(producer.records) == 2 {
			return kerr.NotLeaderForPartition
		}
		return nil
	}
	engine := newEngine(t, producer)
	portfolio := uuid.New()
	entries := []domain.OutboxEntry{
		outboxEntry(1, portfolio),
		outboxEntry(2, portfolio),
		outboxEntry(3, portfolio),
	}

	result := engine.ProcessBatch(context.Background(), entries)

	assert.Equal(t, domain.ResultSystemFailure, result.Kind)
	assert.Equal(t, []int64{1}, result.SuccessfulIDs,
		"the published prefix survives a mid-batch failure")
	assert.Len(t, producer.records, 2)
}

func TestEngine_ProcessBatch_EmptyBatch_Success(t *testing.T) {
	producer := &fakeProducer{}
	engine := newEngine(t, producer)

	result := engine.ProcessBatch(context.Background(), nil)

	assert.Equal(t, domain.ResultSuccess, result.Kind)
	assert.Empty(t, result.SuccessfulIDs)
	assert.Empty(t, producer.records)
}
