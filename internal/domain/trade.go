// Package domain holds the core types moved through the capture pipeline:
// the decoded TradeEvent, the in-flight PendingMessage, the three durable
// record shapes (safe store, outbox, quarantine) and the batch result sum
// type the dispatcher consumes.
//
// Everything in this package is plain data. Behavior lives in the packages
// that own each pipeline stage; keeping the types dependency-free lets the
// codec, persistence and dispatch layers be unit-tested against them
// without infrastructure.
package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeEvent is the decoded business payload carried on the source stream.
//
// TradeID is globally unique across all time and is the idempotency key for
// the safe store. PortfolioID is the ordering key: all events of one
// portfolio reach the downstream bus in source order.
type TradeEvent struct {
	TradeID       uuid.UUID
	PortfolioID   uuid.UUID
	Symbol        string
	Side          Side
	PricePerStock float64
	Quantity      int64
	EventUnixMs   int64
}

// Validate enforces the documented field constraints. A non-nil return means
// the event is permanently invalid (quarantine material), never retryable.
func (e *TradeEvent) Validate() error {
	if e.TradeID == uuid.Nil {
		return fmt.Errorf("trade_id is empty")
	}
	if e.PortfolioID == uuid.Nil {
		return fmt.Errorf("portfolio_id is empty")
	}
	if e.Symbol == "" {
		return fmt.Errorf("symbol is empty")
	}
	if e.Side != SideBuy && e.Side != SideSell {
		return fmt.Errorf("side %q is not BUY or SELL", e.Side)
	}
	if math.IsNaN(e.PricePerStock) || math.IsInf(e.PricePerStock, 0) || e.PricePerStock < 0 {
		return fmt.Errorf("price_per_stock %v is not a valid price", e.PricePerStock)
	}
	if e.Quantity < 0 {
		return fmt.Errorf("quantity %d is negative", e.Quantity)
	}
	if e.EventUnixMs < 0 {
		return fmt.Errorf("event_unix_ms %d is negative", e.EventUnixMs)
	}
	return nil
}
