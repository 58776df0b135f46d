// Package service holds the persistence core of the capture pipeline.
//
// PersistBatch lands every message of a flushed batch somewhere durable
// before the caller acknowledges the source offsets. It degrades through
// four levels rather than failing:
//
//	level 1: the whole batch in one transaction (audit row + outbox row
//	         per valid message, audit row + quarantine row per invalid one)
//	level 2: after a data error, each message in its own transaction with
//	         duplicate-absorbing inserts, so the healthy majority survives
//	         one poisoned payload
//	level 3: a payload the database keeps rejecting moves to the
//	         quarantine table on an independent transaction
//	level 4: if even that insert fails, the raw bytes go to the disk
//	         failure log
//
// Only system failures escape PersistBatch. The caller treats any returned
// error as "pause intake and retry this exact batch"; messages never get
// dropped between levels.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
	"github.com/n1shan1/pms-trade-capture/internal/repository"
	"github.com/n1shan1/pms-trade-capture/internal/telemetry"
)

// CaptureService is the persistence core. All database work it triggers
// goes through the circuit breaker except the level-3 quarantine write,
// which must stay reachable while the breaker deliberates.
type CaptureService struct {
	store      TxRunner
	audit      AuditWriter
	outbox     OutboxWriter
	quarantine QuarantineWriter
	failures   FailureLog
	guard      Breaker
	lifecycle  Lifecycle
	metrics    *telemetry.PipelineMetrics
	log        *zap.Logger
}

func NewCaptureService(
	store TxRunner,
	audit AuditWriter,
	outbox OutboxWriter,
	quarantine QuarantineWriter,
	failures FailureLog,
	guard Breaker,
	lifecycle Lifecycle,
	metrics *telemetry.PipelineMetrics,
	log *zap.Logger,
) *CaptureService {
	return &CaptureService{
		store:      store,
		audit:      audit,
		outbox:     outbox,
		quarantine: quarantine,
		failures:   failures,
		guard:      guard,
		lifecycle:  lifecycle,
		metrics:    metrics,
		log:        log,
	}
}

// persistedMessage pairs a message with the rows its persistence produced,
// so lifecycle events fire only after the transaction committed.
type persistedMessage struct {
	msg    domain.PendingMessage
	audit  *domain.AuditRecord
	outbox *domain.OutboxEntry
	dlqID  int64
}

// PersistBatch lands the batch durably. A nil return means every message is
// accounted for (persisted, quarantined or disk-logged) and the caller may
// acknowledge the source offsets. domain.ErrCallNotPermitted means the
// circuit is open; any other error is a system failure. In both cases the
// caller retries the same batch unchanged.
func (s *CaptureService) PersistBatch(ctx context.Context, batch []domain.PendingMessage) error {
	if len(batch) == 0 {
		return nil
	}

	var persisted []persistedMessage
	err := s.guard.Execute(func() error {
		return s.store.WithTx(ctx, func(tx pgx.Tx) error {
			var txErr error
			persisted, txErr = s.persistAll(ctx, tx, batch)
			return txErr
		})
	})
	switch {
	case err == nil:
		s.reportPersisted(ctx, persisted)
		return nil
	case errors.Is(err, domain.ErrCallNotPermitted):
		s.metrics.IngestFail(ctx, len(batch))
		return err
	case repository.IsDataError(err):
		s.log.Warn("batch persistence hit a data error, retrying item by item",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return s.persistEachSafely(ctx, batch)
	default:
		s.metrics.IngestFail(ctx, len(batch))
		return fmt.Errorf("persist batch: %w", err)
	}
}

// persistAll is the level-1 body: strict inserts, all on one transaction.
// Valid messages get an audit row plus an outbox row; invalid ones get an
// audit row flagged invalid plus a quarantine row. Any failure rolls back
// the whole batch.
func (s *CaptureService) persistAll(ctx context.Context, tx pgx.Tx, batch []domain.PendingMessage) ([]persistedMessage, error) {
	out := make([]persistedMessage, 0, len(batch))
	for i := range batch {
		m := &batch[i]
		rec := repository.AuditRecordFromMessage(m)
		if err := s.audit.Insert(ctx, tx, rec); err != nil {
			return nil, err
		}
		p := persistedMessage{msg: *m, audit: rec}
		if m.Valid() {
			entry := &domain.OutboxEntry{
				PortfolioID: m.Trade.PortfolioID,
				TradeID:     m.Trade.TradeID,
				Payload:     m.Raw,
			}
			if err := s.outbox.Insert(ctx, tx, entry); err != nil {
				return nil, err
			}
			p.outbox = entry
		} else {
			dlqID, err := s.quarantine.Insert(ctx, tx, m.Raw, m.InvalidReason)
			if err != nil {
				return nil, err
			}
			p.dlqID = dlqID
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *CaptureService) persistEachSafely(ctx context.Context, batch []domain.PendingMessage) error {
	for i := range batch {
		if err := s.persistOne(ctx, &batch[i]); err != nil {
			return err
		}
	}
	return nil
}

// persistOne is levels 2 through 4 for a single message. A nil return means
// the message needs no further retry. The level-2 insert absorbs trade_id
// duplicates, so a batch that comes back after a mid-batch system failure
// re-persists only its unlanded suffix.
func (s *CaptureService) persistOne(ctx context.Context, m *domain.PendingMessage) error {
	var (
		rec       *domain.AuditRecord
		entry     *domain.OutboxEntry
		dlqID     int64
		duplicate bool
	)
	err := s.guard.Execute(func() error {
		return s.store.WithTx(ctx, func(tx pgx.Tx) error {
			rec = repository.AuditRecordFromMessage(m)
			inserted, err := s.audit.InsertIdempotent(ctx, tx, rec)
			if err != nil {
				return err
			}
			if !inserted {
				duplicate = true
				return nil
			}
			if m.Valid() {
				entry = &domain.OutboxEntry{
					PortfolioID: m.Trade.PortfolioID,
					TradeID:     m.Trade.TradeID,
					Payload:     m.Raw,
				}
				return s.outbox.Insert(ctx, tx, entry)
			}
			dlqID, err = s.quarantine.Insert(ctx, tx, m.Raw, m.InvalidReason)
			return err
		})
	})
	switch {
	case err == nil:
		if duplicate {
			s.log.Info("duplicate trade absorbed",
				zap.String("trade_id", m.Trade.TradeID.String()),
				zap.Int64("offset", m.Offset),
			)
			return nil
		}
		s.reportPersisted(ctx, []persistedMessage{{msg: *m, audit: rec, outbox: entry, dlqID: dlqID}})
		return nil
	case errors.Is(err, domain.ErrCallNotPermitted):
		s.metrics.IngestFail(ctx, 1)
		return err
	case repository.IsDataError(err):
		s.quarantineMessage(ctx, m, err)
		return nil
	default:
		s.metrics.IngestFail(ctx, 1)
		return fmt.Errorf("persist message at offset %d: %w", m.Offset, err)
	}
}

// quarantineMessage is levels 3 and 4. It never reports failure upward:
// the quarantine insert runs on its own transaction, and if the database
// refuses even that, the payload goes to the disk failure log.
func (s *CaptureService) quarantineMessage(ctx context.Context, m *domain.PendingMessage, cause error) {
	s.QuarantineDirect(ctx, m, fmt.Sprintf("persistence rejected payload: %v", cause))
}

// QuarantineDirect lands a message in quarantine on its own transaction,
// bypassing the persistence ladder. The buffer uses it for messages that
// arrive while shutdown is draining a full buffer. It never reports failure
// upward; if the insert fails the raw bytes go to the disk failure log.
func (s *CaptureService) QuarantineDirect(ctx context.Context, m *domain.PendingMessage, reason string) {
	reason = domain.TruncateErrorDetail(reason)

	var dlqID int64
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var qErr error
		dlqID, qErr = s.quarantine.Insert(ctx, tx, m.Raw, reason)
		return qErr
	})
	if err != nil {
		s.failures.Record(reason, m.Raw)
		dlqID = 0
	} else {
		s.log.Warn("payload quarantined",
			zap.Int64("dlq_id", dlqID),
			zap.Int64("offset", m.Offset),
			zap.String("reason", reason),
		)
	}

	s.metrics.IngestDLQ(ctx, 1)
	var trade *domain.TradeEvent
	if m.Valid() {
		trade = m.Trade
	}
	s.lifecycle.IngestionRejected(ctx, trade, reason, dlqID)
}

func (s *CaptureService) reportPersisted(ctx context.Context, items []persistedMessage) {
	for _, p := range items {
		if !p.msg.Valid() {
			s.metrics.IngestDLQ(ctx, 1)
			s.lifecycle.IngestionRejected(ctx, nil, p.msg.InvalidReason, p.dlqID)
			continue
		}
		s.metrics.IngestSuccess(ctx, 1)
		s.lifecycle.IngestionSucceeded(ctx, p.msg.Trade, p.audit.ID, p.outbox.ID)
	}
}
