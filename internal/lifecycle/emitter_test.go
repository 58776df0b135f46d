package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap/zaptest"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// fakeProducer resolves every promise synchronously.
type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.records = append(f.records, r)
	if promise != nil {
		promise(r, f.err)
	}
}

func decodeEvent(t *testing.T, rec *kgo.Record) stageEvent {
	t.Helper()
	var ev stageEvent
	require.NoError(t, json.Unmarshal(rec.Value, &ev))
	return ev
}

func TestEmitter_IngestionSucceeded(t *testing.T) {
	producer := &fakeProducer{}
	emitter := NewEmitter(producer, "lifecycle.event", zaptest.NewLogger(t))
	trade := &domain.TradeEvent{TradeID: uuid.New(), PortfolioID: uuid.New()}

	emitter.IngestionSucceeded(context.Background(), trade, 100, 200)

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "lifecycle.event", rec.Topic)
	assert.Equal(t, trade.TradeID.String(), string(rec.Key))

	ev := decodeEvent(t, rec)
	assert.Equal(t, trade.TradeID.String(), ev.TraceID)
	assert.Equal(t, trade.PortfolioID.String(), ev.PortfolioID)
	assert.Equal(t, "INGESTION", ev.Stage)
	assert.Equal(t, "SUCCESS", ev.Status)
	assert.False(t, ev.Ts.IsZero())
	assert.Equal(t, "PMS_TRADE_CAPTURE", ev.Details["sourceService"])
	assert.Equal(t, "INGESTION_PERSISTED", ev.Details["eventType"])
	assert.Equal(t, float64(100), ev.Details["safeStoreId"])
	assert.Equal(t, float64(200), ev.Details["outboxId"])
}

func TestEmitter_IngestionRejected(t *testing.T) {
	producer := &fakeProducer{}
	emitter := NewEmitter(producer, "lifecycle.event", zaptest.NewLogger(t))
	trade := &domain.TradeEvent{TradeID: uuid.New(), PortfolioID: uuid.New()}

	emitter.IngestionRejected(context.Background(), trade, "constraint violation: quantity", 42)

	require.Len(t, producer.records, 1)
	ev := decodeEvent(t, producer.records[0])
	assert.Equal(t, "FAILURE", ev.Status)
	assert.Equal(t, "INGESTION_FAILED", ev.Details["eventType"])
	assert.Equal(t, float64(42), ev.Details["dlqId"])
	assert.Equal(t, "constraint violation: quantity", ev.Details["errorMessage"])
}

// A payload that never decoded has no trade, so the event carries no trace
// id and the record no key.
func TestEmitter_IngestionRejected_NilTrade(t *testing.T) {
	producer := &fakeProducer{}
	emitter := NewEmitter(producer, "lifecycle.event", zaptest.NewLogger(t))

	emitter.IngestionRejected(context.Background(), nil, "invalid payload: truncated frame", 0)

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Nil(t, rec.Key)

	ev := decodeEvent(t, rec)
	assert.Empty(t, ev.TraceID)
	assert.Empty(t, ev.PortfolioID)
	assert.Equal(t, "FAILURE", ev.Status)
}

// Bus trouble must stay on the bus: the emitter logs and returns.
func TestEmitter_PublishFailure_Swallowed(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	emitter := NewEmitter(producer, "lifecycle.event", zaptest.NewLogger(t))
	trade := &domain.TradeEvent{TradeID: uuid.New(), PortfolioID: uuid.New()}

	emitter.IngestionSucceeded(context.Background(), trade, 1, 2)

	assert.Len(t, producer.records, 1)
}
