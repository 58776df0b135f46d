package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

const insertOutboxSQL = `
INSERT INTO outbox_event (portfolio_id, trade_id, payload, status)
VALUES ($1, $2, $3, 'PENDING')
RETURNING id, created_at`

// fetchPendingSQL locks the portfolio, not the row. pg_try_advisory_xact_lock
// runs during row evaluation: a portfolio already owned by another
// transaction contributes zero rows here, so two dispatchers can never hold
// entries of the same portfolio concurrently. Row locks (SKIP LOCKED) cannot
// give that guarantee: they allow a second pod to take a later row of the
// same portfolio and publish it first. The lock is transaction-scoped and
// releases itself on commit or rollback. hashtext collisions merely
// serialize two unrelated portfolios for one transaction.
const fetchPendingSQL = `
SELECT id, created_at, portfolio_id, trade_id, payload
FROM outbox_event
WHERE status = 'PENDING'
  AND pg_try_advisory_xact_lock(hashtext(portfolio_id::text))
ORDER BY created_at ASC, id ASC
LIMIT $1`

const markSentSQL = `
UPDATE outbox_event
SET status = 'SENT', sent_at = CURRENT_TIMESTAMP
WHERE id = ANY($1)`

const deleteOutboxSQL = `DELETE FROM outbox_event WHERE id = $1`

// OutboxRepo reads and transitions outbox rows. PENDING → SENT happens only
// through MarkBatchAsSent; poison rows leave the table through Quarantine.
type OutboxRepo struct{}

func NewOutboxRepo() *OutboxRepo { return &OutboxRepo{} }

// Insert stages one downstream publication. Must run on the same tx as the
// audit insert for the trade; that is the transactional-outbox guarantee.
func (r *OutboxRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry) error {
	row := tx.QueryRow(ctx, insertOutboxSQL,
		pgtype.UUID{Bytes: e.PortfolioID, Valid: true},
		pgtype.UUID{Bytes: e.TradeID, Valid: true},
		e.Payload,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox_event: %w", err)
	}
	e.Status = domain.OutboxPending
	return nil
}

// FetchPendingBatch returns up to limit PENDING entries in (created_at, id)
// order, restricted to portfolios whose advisory lock this transaction won.
func (r *OutboxRepo) FetchPendingBatch(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEntry, error) {
	rows, err := tx.Query(ctx, fetchPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var (
			e           domain.OutboxEntry
			portfolioID pgtype.UUID
			tradeID     pgtype.UUID
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &portfolioID, &tradeID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.PortfolioID = uuid.UUID(portfolioID.Bytes)
		e.TradeID = uuid.UUID(tradeID.Bytes)
		e.Status = domain.OutboxPending
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return entries, nil
}

// MarkBatchAsSent transitions the given ids to SENT in one statement. The
// id list is always a contiguous successful prefix of a fetched batch.
func (r *OutboxRepo) MarkBatchAsSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, markSentSQL, ids); err != nil {
		return fmt.Errorf("mark outbox batch sent: %w", err)
	}
	return nil
}

// Quarantine moves one poisoned entry out of the outbox: dead-letter insert
// plus delete, both on the caller's transaction so the move commits
// atomically with the batch's mark-sent prefix.
func (r *OutboxRepo) Quarantine(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry, reason string) error {
	if _, err := tx.Exec(ctx, insertDLQSQL, e.Payload, domain.TruncateErrorDetail(reason)); err != nil {
		return fmt.Errorf("quarantine outbox entry %d: %w", e.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteOutboxSQL, e.ID); err != nil {
		return fmt.Errorf("delete quarantined outbox entry %d: %w", e.ID, err)
	}
	return nil
}
