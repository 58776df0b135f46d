package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/codec"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// Producer is the slice of the Kafka client the engine uses. ProduceSync
// keeps exactly one record of the group in flight, which is what makes the
// reported prefix trustworthy.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Engine publishes one per-portfolio outbox group, in order, keyed by
// portfolio id so every entry of a portfolio lands on the same partition.
type Engine struct {
	producer Producer
	envelope *Envelope
	topic    string
	timeout  time.Duration
	log      *zap.Logger
}

func NewEngine(producer Producer, envelope *Envelope, topic string, timeout time.Duration, log *zap.Logger) *Engine {
	return &Engine{
		producer: producer,
		envelope: envelope,
		topic:    topic,
		timeout:  timeout,
		log:      log,
	}
}

// ProcessBatch walks the group front to back and stops at the first
// failure. The result's ids are the contiguous prefix that reached the
// broker fully acknowledged; entries after a failure are not attempted, so
// a portfolio's stream can never skip ahead of a stuck entry.
func (e *Engine) ProcessBatch(ctx context.Context, entries []domain.OutboxEntry) domain.BatchResult {
	successful := make([]int64, 0, len(entries))
	for i := range entries {
		entry := &entries[i]

		if _, err := codec.Decode(entry.Payload); err != nil {
			reason := fmt.Sprintf("undecodable outbox payload: %v", err)
			e.log.Error("poison pill detected before publish",
				zap.Int64("outbox_id", entry.ID),
				zap.String("trade_id", entry.TradeID.String()),
				zap.String("reason", reason),
			)
			return domain.PoisonPillResult(successful, entry.ID, reason)
		}

		if err := e.publish(ctx, entry); err != nil {
			class, reason := ClassifyPublishError(err)
			if class == domain.ClassPoisonPill {
				e.log.Error("poison pill detected during publish",
					zap.Int64("outbox_id", entry.ID),
					zap.String("trade_id", entry.TradeID.String()),
					zap.Error(err),
				)
				return domain.PoisonPillResult(successful, entry.ID, reason)
			}
			e.log.Warn("publish failed, batch suspended",
				zap.Int64("outbox_id", entry.ID),
				zap.String("reason", reason),
				zap.Error(err),
			)
			return domain.SystemFailureResult(successful)
		}

		successful = append(successful, entry.ID)
	}
	return domain.SuccessResult(successful)
}

func (e *Engine) publish(ctx context.Context, entry *domain.OutboxEntry) error {
	value, err := e.envelope.Wrap(entry.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", errSerialization, err)
	}

	pctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: e.topic,
		Key:   []byte(entry.PortfolioID.String()),
		Value: value,
	}
	return e.producer.ProduceSync(pctx, record).FirstErr()
}
