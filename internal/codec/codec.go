// Package codec implements the canonical wire format for trade events and
// the message classifier that turns raw stream bytes into either a decoded
// TradeEvent or a quarantine reason.
//
// The format is a protobuf-wire frame with a fixed shape: fields 1..7 in
// ascending order, each present exactly once.
//
//	1 trade_id        string (canonical UUID text)
//	2 portfolio_id    string (canonical UUID text)
//	3 symbol          string
//	4 side            string ("BUY" | "SELL")
//	5 price_per_stock double
//	6 quantity        int64
//	7 event_unix_ms   int64
//
// Decode is deliberately strict: unknown fields, reordered fields, repeated
// fields, non-minimal varints and non-canonical UUID text are all rejected.
// Strictness buys a real guarantee: Encode(Decode(b)) == b for every payload
// Decode accepts, so the bytes stored in the outbox are bit-identical to the
// bytes received, and replay/forensics never see a lossy re-encoding.
package codec

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

const (
	fieldTradeID     protowire.Number = 1
	fieldPortfolioID protowire.Number = 2
	fieldSymbol      protowire.Number = 3
	fieldSide        protowire.Number = 4
	fieldPrice       protowire.Number = 5
	fieldQuantity    protowire.Number = 6
	fieldEventMs     protowire.Number = 7
)

// Encode renders the canonical frame. It is total: any TradeEvent value
// encodes, including ones Validate would reject. Validation is the
// classifier's job, not the codec's.
func Encode(ev *domain.TradeEvent) []byte {
	b := make([]byte, 0, 128)
	b = protowire.AppendTag(b, fieldTradeID, protowire.BytesType)
	b = protowire.AppendString(b, ev.TradeID.String())
	b = protowire.AppendTag(b, fieldPortfolioID, protowire.BytesType)
	b = protowire.AppendString(b, ev.PortfolioID.String())
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, ev.Symbol)
	b = protowire.AppendTag(b, fieldSide, protowire.BytesType)
	b = protowire.AppendString(b, string(ev.Side))
	b = protowire.AppendTag(b, fieldPrice, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(ev.PricePerStock))
	b = protowire.AppendTag(b, fieldQuantity, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Quantity))
	b = protowire.AppendTag(b, fieldEventMs, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.EventUnixMs))
	return b
}

// Decode parses a canonical frame. Any deviation from the shape documented
// on the package returns an error; decode errors are permanent (a retry
// reads the same bytes), so callers treat them as data errors.
func Decode(raw []byte) (*domain.TradeEvent, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	d := &decoder{buf: raw}

	tradeID := d.uuidField(fieldTradeID, "trade_id")
	portfolioID := d.uuidField(fieldPortfolioID, "portfolio_id")
	symbol := d.stringField(fieldSymbol, "symbol")
	side := d.stringField(fieldSide, "side")
	price := d.doubleField(fieldPrice, "price_per_stock")
	quantity := d.int64Field(fieldQuantity, "quantity")
	eventMs := d.int64Field(fieldEventMs, "event_unix_ms")

	if d.err == nil && len(d.buf) != 0 {
		d.err = fmt.Errorf("%d trailing bytes after event_unix_ms", len(d.buf))
	}
	if d.err != nil {
		return nil, d.err
	}
	return &domain.TradeEvent{
		TradeID:       tradeID,
		PortfolioID:   portfolioID,
		Symbol:        symbol,
		Side:          domain.Side(side),
		PricePerStock: price,
		Quantity:      quantity,
		EventUnixMs:   eventMs,
	}, nil
}

// ── strict frame decoder ──────────────────────────────────────────────────

// decoder walks the frame field by field, short-circuiting on the first
// error. All Consume helpers reject non-minimal varints so every accepted
// byte sequence has exactly one decoding.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) tag(num protowire.Number, want protowire.Type, name string) bool {
	if d.err != nil {
		return false
	}
	got, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		d.err = fmt.Errorf("%s: malformed tag: %w", name, protowire.ParseError(n))
		return false
	}
	if got != num || typ != want {
		d.err = fmt.Errorf("%s: expected field %d wire type %d, got field %d wire type %d",
			name, num, want, got, typ)
		return false
	}
	d.buf = d.buf[n:]
	return true
}

func (d *decoder) varint(name string) uint64 {
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.err = fmt.Errorf("%s: malformed varint: %w", name, protowire.ParseError(n))
		return 0
	}
	if protowire.SizeVarint(v) != n {
		d.err = fmt.Errorf("%s: non-minimal varint encoding", name)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) stringField(num protowire.Number, name string) string {
	if !d.tag(num, protowire.BytesType, name) {
		return ""
	}
	l := d.varint(name)
	if d.err != nil {
		return ""
	}
	if uint64(len(d.buf)) < l {
		d.err = fmt.Errorf("%s: declared length %d exceeds remaining %d bytes", name, l, len(d.buf))
		return ""
	}
	v := string(d.buf[:l])
	d.buf = d.buf[l:]
	return v
}

func (d *decoder) uuidField(num protowire.Number, name string) uuid.UUID {
	s := d.stringField(num, name)
	if d.err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		d.err = fmt.Errorf("%s: %q is not a UUID: %v", name, s, err)
		return uuid.Nil
	}
	// uuid.Parse accepts braces, URNs and upper case; only the canonical
	// lower-hyphenated text round-trips, so anything else is rejected.
	if id.String() != s {
		d.err = fmt.Errorf("%s: %q is not canonical UUID text", name, s)
		return uuid.Nil
	}
	return id
}

func (d *decoder) doubleField(num protowire.Number, name string) float64 {
	if !d.tag(num, protowire.Fixed64Type, name) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.buf)
	if n < 0 {
		d.err = fmt.Errorf("%s: malformed fixed64: %w", name, protowire.ParseError(n))
		return 0
	}
	d.buf = d.buf[n:]
	return math.Float64frombits(v)
}

func (d *decoder) int64Field(num protowire.Number, name string) int64 {
	if !d.tag(num, protowire.VarintType, name) {
		return 0
	}
	return int64(d.varint(name))
}
