package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

const insertAuditSQL = `
INSERT INTO safe_store_trade
       (portfolio_id, trade_id, symbol, side, price_per_stock, quantity, event_timestamp, raw_payload, valid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, received_at`

// The conflict target is the partial unique index on valid rows, so two
// invalid rows (both carrying the uuid.Nil sentinel) never collide.
const insertAuditIdempotentSQL = `
INSERT INTO safe_store_trade
       (portfolio_id, trade_id, symbol, side, price_per_stock, quantity, event_timestamp, raw_payload, valid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (trade_id) WHERE valid DO NOTHING
RETURNING id, received_at`

// AuditRepo writes the safe store: one row per received message, valid or
// not, before the message's offset is acknowledged.
type AuditRepo struct{}

func NewAuditRepo() *AuditRepo { return &AuditRepo{} }

// Insert writes one audit row strictly: a duplicate trade_id surfaces as a
// unique violation. The batch path wants that behavior so the whole
// transaction demotes to the per-item path.
func (r *AuditRepo) Insert(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error {
	row := tx.QueryRow(ctx, insertAuditSQL, auditArgs(rec)...)
	if err := row.Scan(&rec.ID, &rec.ReceivedAt); err != nil {
		return fmt.Errorf("insert safe_store_trade: %w", err)
	}
	return nil
}

// InsertIdempotent writes one audit row, absorbing trade_id duplicates.
// Returns false (and no error) when the row already existed; the caller
// must then skip the outbox insert so the duplicate is not re-emitted.
func (r *AuditRepo) InsertIdempotent(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) (bool, error) {
	row := tx.QueryRow(ctx, insertAuditIdempotentSQL, auditArgs(rec)...)
	err := row.Scan(&rec.ID, &rec.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert safe_store_trade (idempotent): %w", err)
	}
	return true, nil
}

func auditArgs(rec *domain.AuditRecord) []any {
	return []any{
		pgtype.UUID{Bytes: rec.PortfolioID, Valid: true},
		pgtype.UUID{Bytes: rec.TradeID, Valid: true},
		rec.Symbol,
		string(rec.Side),
		rec.PricePerStock,
		rec.Quantity,
		time.UnixMilli(rec.EventUnixMs).UTC(),
		rec.RawPayload,
		rec.Valid,
	}
}

// AuditRecordFromMessage maps a pending message onto its audit row. Invalid
// messages get the uuid.Nil trade sentinel and zero business fields; the
// raw payload is always preserved for forensics.
func AuditRecordFromMessage(m *domain.PendingMessage) *domain.AuditRecord {
	if !m.Valid() {
		return &domain.AuditRecord{
			TradeID:    uuid.Nil,
			RawPayload: m.Raw,
			Valid:      false,
		}
	}
	return &domain.AuditRecord{
		PortfolioID:   m.Trade.PortfolioID,
		TradeID:       m.Trade.TradeID,
		Symbol:        m.Trade.Symbol,
		Side:          m.Trade.Side,
		PricePerStock: m.Trade.PricePerStock,
		Quantity:      m.Trade.Quantity,
		EventUnixMs:   m.Trade.EventUnixMs,
		RawPayload:    m.Raw,
		Valid:         true,
	}
}
