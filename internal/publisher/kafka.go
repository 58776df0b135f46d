// Package publisher turns committed outbox entries into records on the
// downstream bus.
//
// The engine publishes one entry at a time in batch order and stops at the
// first failure, so the successful prefix it reports is always contiguous.
// The classifier decides whether a failure condemns the entry (poison pill,
// quarantined) or the system (backed off and retried); the client itself is
// configured so that ordering survives its internal retries.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sr"
)

// tradeEventSchema is the destination topic's value contract, registered
// with the schema registry at startup. Records carry the registered id in
// the confluent envelope so downstream consumers can resolve it.
const tradeEventSchema = `syntax = "proto3";
package pms.trade.capture;

message TradeEvent {
  string trade_id = 1;
  string portfolio_id = 2;
  string symbol = 3;
  string side = 4;
  double price_per_stock = 5;
  int64 quantity = 6;
  int64 event_unix_ms = 7;
}`

// NewClient builds the producer for the downstream bus. Per-partition
// ordering survives retries only with idempotence on (the kgo default) and
// a single in-flight produce request per broker; without the latter a
// retried request can land behind its successor. deliveryTimeout bounds how
// long a record may sit in the client before failing with ErrRecordTimeout.
func NewClient(brokers []string, deliveryTimeout time.Duration) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.MaxProduceRequestsInflightPerBroker(1),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.ProducerBatchMaxBytes(32768),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
}

// Envelope stamps canonical payloads with the confluent wire prefix (magic
// byte, schema id, message index) expected on the destination topic.
type Envelope struct {
	header   sr.ConfluentHeader
	schemaID int
}

// NewEnvelope registers the trade event schema under the topic's value
// subject and returns the envelope carrying its id. Registration is
// idempotent on the registry side; re-registering an identical schema
// returns the existing id.
func NewEnvelope(ctx context.Context, rcl *sr.Client, topic string) (*Envelope, error) {
	ss, err := rcl.CreateSchema(ctx, topic+"-value", sr.Schema{
		Schema: tradeEventSchema,
		Type:   sr.TypeProtobuf,
	})
	if err != nil {
		return nil, fmt.Errorf("register schema for topic %s: %w", topic, err)
	}
	return &Envelope{schemaID: ss.ID}, nil
}

// SchemaID returns the registered schema id.
func (e *Envelope) SchemaID() int { return e.schemaID }

// Wrap prefixes a payload with the envelope. Index {0} addresses the first
// message of the schema, which is the only one it declares.
func (e *Envelope) Wrap(payload []byte) ([]byte, error) {
	buf, err := e.header.AppendEncode(make([]byte, 0, 6+len(payload)), e.schemaID, []int{0})
	if err != nil {
		return nil, fmt.Errorf("encode confluent envelope: %w", err)
	}
	return append(buf, payload...), nil
}
