// Package lifecycle publishes pipeline stage events so downstream tooling
// can trace each trade's path by trade id.
package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

const (
	stageIngestion = "INGESTION"

	statusSuccess = "SUCCESS"
	statusFailure = "FAILURE"

	sourceService  = "PMS_TRADE_CAPTURE"
	eventPersisted = "INGESTION_PERSISTED"
	eventFailed    = "INGESTION_FAILED"
)

// Producer is the async slice of the Kafka client the emitter uses.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Emitter publishes stage events fire-and-forget. The pipeline's fate never
// depends on the tracing bus: marshal and publish failures are logged and
// dropped.
type Emitter struct {
	producer Producer
	topic    string
	log      *zap.Logger
}

func NewEmitter(producer Producer, topic string, log *zap.Logger) *Emitter {
	return &Emitter{producer: producer, topic: topic, log: log}
}

// stageEvent is the wire envelope shared by all pipeline stages; consumers
// correlate on traceId, which for this stage is the trade id.
type stageEvent struct {
	TraceID     string         `json:"traceId"`
	PortfolioID string         `json:"portfolioId"`
	Stage       string         `json:"stage"`
	Status      string         `json:"status"`
	Ts          time.Time      `json:"ts"`
	Details     map[string]any `json:"details"`
}

// IngestionSucceeded reports a trade landed durably: its audit row and the
// outbox entry that will carry it downstream.
func (e *Emitter) IngestionSucceeded(ctx context.Context, trade *domain.TradeEvent, safeStoreID, outboxID int64) {
	e.emit(ctx, trade, statusSuccess, map[string]any{
		"sourceService": sourceService,
		"eventType":     eventPersisted,
		"safeStoreId":   safeStoreID,
		"outboxId":      outboxID,
	})
}

// IngestionRejected reports a message that ended in quarantine or the audit
// trail's invalid lane. trade is nil when the payload never decoded; dlqID
// is zero when no quarantine row exists (invalid-audit-only, or the write
// fell through to the disk failure log).
func (e *Emitter) IngestionRejected(ctx context.Context, trade *domain.TradeEvent, reason string, dlqID int64) {
	e.emit(ctx, trade, statusFailure, map[string]any{
		"sourceService": sourceService,
		"eventType":     eventFailed,
		"dlqId":         dlqID,
		"errorMessage":  reason,
	})
}

func (e *Emitter) emit(ctx context.Context, trade *domain.TradeEvent, status string, details map[string]any) {
	ev := stageEvent{
		Stage:   stageIngestion,
		Status:  status,
		Ts:      time.Now().UTC(),
		Details: details,
	}
	var key []byte
	if trade != nil {
		ev.TraceID = trade.TradeID.String()
		ev.PortfolioID = trade.PortfolioID.String()
		key = []byte(ev.TraceID)
	}

	value, err := json.Marshal(ev)
	if err != nil {
		e.log.Warn("lifecycle event not serializable", zap.Error(err))
		return
	}

	e.producer.Produce(ctx, &kgo.Record{Topic: e.topic, Key: key, Value: value},
		func(r *kgo.Record, err error) {
			if err != nil {
				e.log.Warn("lifecycle event publish failed",
					zap.String("trace_id", string(r.Key)),
					zap.Error(err),
				)
			}
		})
}
