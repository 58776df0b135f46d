package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// PipelineMetrics is the counter set for the capture pipeline. With no
// global MeterProvider installed (unit tests) every counter is a no-op, so
// the type is safe to construct anywhere.
type PipelineMetrics struct {
	ingestSuccess  metric.Int64Counter
	ingestFail     metric.Int64Counter
	ingestDLQ      metric.Int64Counter
	dispatchSent   metric.Int64Counter
	dispatchPoison metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline counters on the global meter.
// Instrument creation can only fail on an invalid name, which would be a
// programming error here, so failures go to the OTel error handler and the
// affected counter degrades to a no-op instead of blocking startup.
func NewPipelineMetrics() *PipelineMetrics {
	meter := otel.Meter("pms-trade-capture")
	return &PipelineMetrics{
		ingestSuccess: newCounter(meter, "trade.ingest.success",
			"Trades durably persisted to the safe store"),
		ingestFail: newCounter(meter, "trade.ingest.fail",
			"Trades whose persistence attempt failed and will be retried"),
		ingestDLQ: newCounter(meter, "trade.ingest.dlq",
			"Messages written to quarantine at ingress"),
		dispatchSent: newCounter(meter, "trade.dispatch.sent",
			"Outbox entries published downstream and marked SENT"),
		dispatchPoison: newCounter(meter, "trade.dispatch.poison",
			"Outbox entries quarantined as poison pills at dispatch"),
	}
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		otel.Handle(err)
		c, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return c
}

func (m *PipelineMetrics) IngestSuccess(ctx context.Context, n int) {
	m.ingestSuccess.Add(ctx, int64(n))
}

func (m *PipelineMetrics) IngestFail(ctx context.Context, n int) {
	m.ingestFail.Add(ctx, int64(n))
}

func (m *PipelineMetrics) IngestDLQ(ctx context.Context, n int) {
	m.ingestDLQ.Add(ctx, int64(n))
}

func (m *PipelineMetrics) DispatchSent(ctx context.Context, n int) {
	m.dispatchSent.Add(ctx, int64(n))
}

func (m *PipelineMetrics) DispatchPoison(ctx context.Context, n int) {
	m.dispatchPoison.Add(ctx, int64(n))
}
