package domain

// AckHandle is the opaque token the stream adapter attaches to each delivered
// message. Only the adapter that issued it can interpret it; everything else
// carries it around and hands it back through StoreOffset after the message's
// batch is durably persisted.
type AckHandle interface{}

// ReplayOffset is the offset sentinel for messages injected through the admin
// replay endpoint. Replayed messages have no ack handle; offset commit skips
// them.
const ReplayOffset int64 = -1

// PendingMessage pairs a received stream message with its offset and ack
// handle while it waits in the ingestion buffer. Exactly one of Trade /
// InvalidReason is set. Immutable after construction: the consumer goroutine
// builds it, the flusher goroutine reads it, nobody writes.
//
// The raw bytes are kept alongside the decoded event so quarantine and the
// audit trail always store what was actually received.
type PendingMessage struct {
	Trade         *TradeEvent
	Raw           []byte
	Offset        int64
	InvalidReason string
	Ack           AckHandle
}

// NewPendingMessage wraps a successfully decoded trade event.
func NewPendingMessage(trade *TradeEvent, raw []byte, offset int64, ack AckHandle) PendingMessage {
	return PendingMessage{Trade: trade, Raw: raw, Offset: offset, Ack: ack}
}

// NewInvalidMessage wraps an undecodable or constraint-violating payload.
// The reason string ends up in the quarantine row's error detail.
func NewInvalidMessage(raw []byte, offset int64, reason string, ack AckHandle) PendingMessage {
	return PendingMessage{Raw: raw, Offset: offset, InvalidReason: reason, Ack: ack}
}

// Valid reports whether the message decoded and validated cleanly.
func (m *PendingMessage) Valid() bool {
	return m.Trade != nil && m.InvalidReason == ""
}
