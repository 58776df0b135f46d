package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// TxRunner runs fn inside one database transaction, committing on nil and
// rolling back on error.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// AuditWriter writes safe-store rows.
type AuditWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error
	InsertIdempotent(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) (bool, error)
}

// OutboxWriter stages downstream publications.
type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry) error
}

// QuarantineWriter writes dead-letter rows.
type QuarantineWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, raw []byte, reason string) (int64, error)
}

// FailureLog is the last-resort sink for payloads the database refused.
type FailureLog interface {
	Record(reason string, raw []byte)
}

// Breaker guards persistence calls against a struggling database.
type Breaker interface {
	Execute(fn func() error) error
}

// Lifecycle publishes ingestion outcomes for downstream tracing.
type Lifecycle interface {
	IngestionSucceeded(ctx context.Context, trade *domain.TradeEvent, safeStoreID, outboxID int64)
	IngestionRejected(ctx context.Context, trade *domain.TradeEvent, reason string, dlqID int64)
}
