// Package observability provides the metrics instruments and the operational
// HTTP endpoints of the eqwald driver.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	metricModulesStarted = "eqwald.eqwalizer.modules.started.total"
	metricModulesDone    = "eqwald.eqwalizer.modules.done.total"
	metricModuleDuration = "eqwald.eqwalizer.module.duration.seconds"
	metricModulesActive  = "eqwald.eqwalizer.modules.active"
)

// durationBucketBoundaries covers per-module check times from milliseconds
// to the multi-minute checks large modules can take.
var durationBucketBoundaries = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// metricBuilder accumulates OTel instrument creation errors, enabling batch
// construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// EqwalizerMetrics instruments the eqwalizing lifecycle. It is the
// production implementation of the database's eqwalizing sink.
type EqwalizerMetrics struct {
	started  metric.Int64Counter
	done     metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewEqwalizerMetrics creates the instruments from the given meter.
func NewEqwalizerMetrics(mt metric.Meter) (*EqwalizerMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EqwalizerMetrics{
		started:  b.counter(metricModulesStarted, "Modules the checker started on", "{module}"),
		done:     b.counter(metricModulesDone, "Modules the checker finished", "{module}"),
		duration: b.histogram(metricModuleDuration, "Per-module check duration in seconds", "s", durationBucketBoundaries...),
		active:   b.upDownCounter(metricModulesActive, "Modules currently being checked", "{module}"),
		starts:   make(map[string]time.Time),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// EqwalizingStart records the start of a module check.
// Safe to call on a nil receiver (no-op).
func (em *EqwalizerMetrics) EqwalizingStart(module string) {
	if em == nil {
		return
	}

	ctx := context.Background()
	em.started.Add(ctx, 1)
	em.active.Add(ctx, 1)

	em.mu.Lock()
	em.starts[module] = time.Now()
	em.mu.Unlock()
}

// EqwalizingDone records the completion of a module check and its duration,
// when the matching start was observed.
// Safe to call on a nil receiver (no-op).
func (em *EqwalizerMetrics) EqwalizingDone(module string) {
	if em == nil {
		return
	}

	ctx := context.Background()
	em.done.Add(ctx, 1)
	em.active.Add(ctx, -1)

	em.mu.Lock()
	startedAt, found := em.starts[module]
	delete(em.starts, module)
	em.mu.Unlock()

	if found {
		em.duration.Record(ctx, time.Since(startedAt).Seconds())
	}
}
