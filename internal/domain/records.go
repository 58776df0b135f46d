package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the lifecycle state of an outbox row. PENDING → SENT is the
// only transition; SENT is terminal.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
)

// AuditRecord is one row of the safe store: every message received from the
// stream, valid or not, exactly once before its offset is acknowledged.
// Invalid rows carry uuid.Nil as TradeID and zero business fields.
type AuditRecord struct {
	ID            int64
	ReceivedAt    time.Time
	PortfolioID   uuid.UUID
	TradeID       uuid.UUID
	Symbol        string
	Side          Side
	PricePerStock float64
	Quantity      int64
	EventUnixMs   int64
	RawPayload    []byte
	Valid         bool
}

// OutboxEntry is one pending downstream publication. Created in the same
// transaction as its valid AuditRecord; the dispatcher flips Status to SENT
// after the downstream bus acknowledges the publish.
type OutboxEntry struct {
	ID          int64
	CreatedAt   time.Time
	PortfolioID uuid.UUID
	TradeID     uuid.UUID
	Payload     []byte
	Status      OutboxStatus
	SentAt      *time.Time
}

// QuarantineEntry is one dead-lettered message. Append-only; rows are never
// updated. Retention is operational policy: rows older than 30 days may be
// purged out of band.
type QuarantineEntry struct {
	ID          int64
	FailedAt    time.Time
	RawMessage  []byte
	ErrorDetail string
}

// MaxErrorDetailLen caps the error_detail column. Longer reasons are
// truncated, never rejected.
const MaxErrorDetailLen = 4096

// TruncateErrorDetail trims a reason string to the column limit.
func TruncateErrorDetail(s string) string {
	if len(s) <= MaxErrorDetailLen {
		return s
	}
	return s[:MaxErrorDetailLen]
}
