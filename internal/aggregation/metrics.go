package aggregation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const namespace = "completion_aggregator"

// Run outcomes recorded on the runs counter.
const (
	OutcomeApplied    = "applied"
	OutcomeDiscarded  = "discarded"
	OutcomeFailed     = "failed"
	OutcomeStructural = "structural"
)

// Metrics is the coordinator's instrumentation.
type Metrics struct {
	runs            metric.Int64Counter
	runDuration     metric.Float64Histogram
	batchSize       metric.Int64Histogram
	markersResolved metric.Int64Counter
	markersPurged   metric.Int64Counter
}

// NewMetrics registers the coordinator instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(Metrics)
	var err error

	if m.runs, err = meter.Int64Counter(
		"updater_runs_total",
		metric.WithDescription("Total number of updater runs by outcome"),
	); err != nil {
		return nil, err
	}

	if m.runDuration, err = meter.Float64Histogram(
		"updater_run_duration_seconds",
		metric.WithDescription("Duration of one updater run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.batchSize, err = meter.Int64Histogram(
		"batch_pairs",
		metric.WithDescription("Number of (learner, course) pairs selected per batch"),
	); err != nil {
		return nil, err
	}

	if m.markersResolved, err = meter.Int64Counter(
		"markers_resolved_total",
		metric.WithDescription("Total number of staleness markers resolved"),
	); err != nil {
		return nil, err
	}

	if m.markersPurged, err = meter.Int64Counter(
		"markers_purged_total",
		metric.WithDescription("Total number of resolved markers purged by retention"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func (m *Metrics) ObserveRun(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) ObserveBatchSize(ctx context.Context, pairs int) {
	m.batchSize.Record(ctx, int64(pairs))
}

func (m *Metrics) AddResolved(ctx context.Context, n int64) {
	m.markersResolved.Add(ctx, n)
}

func (m *Metrics) AddPurged(ctx context.Context, n int64) {
	m.markersPurged.Add(ctx, n)
}
