// Package dispatcher drives the outbox: a single-goroutine loop that, once
// per iteration, opens one transaction, claims a batch of PENDING entries
// (portfolio advisory locks ride on the fetch), publishes them grouped by
// portfolio and commits the outcome. Holding the claim transaction open
// across the publish is what makes per-portfolio ordering hold across pods:
// nobody else can touch a claimed portfolio until this iteration commits.
//
// Downstream outages surface as SystemFailure verdicts and turn into
// exponential backoff between iterations; the committed successful prefix
// is never lost to the retry.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/batch"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
	"github.com/n1shan1/pms-trade-capture/internal/telemetry"
)

// TxRunner opens the per-iteration transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// OutboxSource is the slice of the outbox repository the worker drives.
type OutboxSource interface {
	FetchPendingBatch(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEntry, error)
	MarkBatchAsSent(ctx context.Context, tx pgx.Tx, ids []int64) error
	Quarantine(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry, reason string) error
}

// BatchPublisher publishes one per-portfolio group and reports how far it
// got.
type BatchPublisher interface {
	ProcessBatch(ctx context.Context, entries []domain.OutboxEntry) domain.BatchResult
}

// Config holds the loop's backoff and idle tuning.
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	IdleSleep      time.Duration
}

// Worker is the dispatch loop. Construct with NewWorker, run exactly one
// Run goroutine; Backoff is safe to read from other goroutines for status
// snapshots.
type Worker struct {
	store   TxRunner
	outbox  OutboxSource
	engine  BatchPublisher
	sizer   *batch.Sizer
	metrics *telemetry.PipelineMetrics
	cfg     Config
	log     *zap.Logger

	backoffNs atomic.Int64
}

func NewWorker(
	store TxRunner,
	outbox OutboxSource,
	engine BatchPublisher,
	sizer *batch.Sizer,
	metrics *telemetry.PipelineMetrics,
	cfg Config,
	log *zap.Logger,
) *Worker {
	return &Worker{
		store:   store,
		outbox:  outbox,
		engine:  engine,
		sizer:   sizer,
		metrics: metrics,
		cfg:     cfg,
		log:     log,
	}
}

// Backoff returns the delay the loop will sleep before its next iteration.
// Zero means the downstream is healthy.
func (w *Worker) Backoff() time.Duration {
	return time.Duration(w.backoffNs.Load())
}

func (w *Worker) setBackoff(d time.Duration) {
	w.backoffNs.Store(int64(d))
}

// escalateBackoff doubles the current delay, entering at the configured
// initial value and saturating at the maximum.
func (w *Worker) escalateBackoff() {
	next := 2 * w.Backoff()
	if next < w.cfg.InitialBackoff {
		next = w.cfg.InitialBackoff
	}
	if next > w.cfg.MaxBackoff {
		next = w.cfg.MaxBackoff
	}
	w.setBackoff(next)
}

// Run executes iterations until ctx is cancelled. Cancellation is observed
// only between iterations: a transaction in flight always runs to its
// commit so the advisory locks release with the outcome recorded.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("outbox dispatcher started")
	defer w.log.Info("outbox dispatcher stopped")
	for {
		if b := w.Backoff(); b > 0 {
			sleepCtx(ctx, b)
		}
		if ctx.Err() != nil {
			return
		}
		w.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

// runOnce is one claim-publish-commit iteration.
func (w *Worker) runOnce(ctx context.Context) {
	// Shutdown must not abort a transaction already holding portfolio
	// locks with records possibly on the wire; the iteration runs
	// detached and Run observes ctx afterwards.
	tctx := context.WithoutCancel(ctx)

	var (
		fetched      int
		systemFailed bool
	)
	start := time.Now()
	err := w.store.WithTx(tctx, func(tx pgx.Tx) error {
		entries, err := w.outbox.FetchPendingBatch(tctx, tx, w.sizer.Current())
		if err != nil {
			return err
		}
		fetched = len(entries)
		if fetched == 0 {
			return nil
		}

		for _, group := range groupByPortfolio(entries) {
			result := w.engine.ProcessBatch(tctx, group)
			if err := w.outbox.MarkBatchAsSent(tctx, tx, result.SuccessfulIDs); err != nil {
				return err
			}
			if n := len(result.SuccessfulIDs); n > 0 {
				w.metrics.DispatchSent(tctx, n)
			}

			switch result.Kind {
			case domain.ResultPoisonPill:
				entry := findEntry(group, result.Poison.EntryID)
				if entry == nil {
					return fmt.Errorf("poison verdict names entry %d outside its group", result.Poison.EntryID)
				}
				if err := w.outbox.Quarantine(tctx, tx, entry, result.Poison.Reason); err != nil {
					return err
				}
				w.metrics.DispatchPoison(tctx, 1)
				w.log.Warn("outbox entry quarantined",
					zap.Int64("outbox_id", entry.ID),
					zap.String("trade_id", entry.TradeID.String()),
					zap.String("reason", result.Poison.Reason),
				)
			case domain.ResultSystemFailure:
				// Commit what the group got through; the rest stays
				// PENDING and the loop backs off.
				systemFailed = true
				return nil
			}
		}
		return nil
	})

	switch {
	case err != nil:
		w.log.Error("dispatch iteration failed", zap.Error(err))
		w.setBackoff(w.cfg.InitialBackoff)
	case systemFailed:
		w.escalateBackoff()
		w.log.Warn("downstream unavailable, dispatcher backing off",
			zap.Duration("backoff", w.Backoff()),
		)
	case fetched == 0:
		w.setBackoff(0)
		w.sizer.Reset()
		sleepCtx(ctx, w.cfg.IdleSleep)
	default:
		w.setBackoff(0)
		w.sizer.Observe(time.Since(start), fetched)
	}
}

// groupByPortfolio splits a fetched batch into per-portfolio groups,
// keeping entries in fetch order within each group and groups in
// first-appearance order.
func groupByPortfolio(entries []domain.OutboxEntry) [][]domain.OutboxEntry {
	idx := make(map[uuid.UUID]int, len(entries))
	var groups [][]domain.OutboxEntry
	for _, e := range entries {
		i, ok := idx[e.PortfolioID]
		if !ok {
			i = len(groups)
			idx[e.PortfolioID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

func findEntry(group []domain.OutboxEntry, id int64) *domain.OutboxEntry {
	for i := range group {
		if group[i].ID == id {
			return &group[i]
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
