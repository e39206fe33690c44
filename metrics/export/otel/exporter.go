package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() caseguard.MetricsSnapshot
	AuditDropped() uint64
}

// latencySeries publishes one engine histogram as a cumulative bucket gauge
// keyed by the "le" attribute, plus a total count gauge.
type latencySeries struct {
	id      caseguard.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes the engine snapshot through observable OTel instruments.
type Exporter struct {
	source       metricsSource
	counters     map[caseguard.MetricID]metric.Int64ObservableCounter
	latency      []latencySeries
	dropped      metric.Int64ObservableCounter
	leAttrs      []metric.ObserveOption
	registration metric.Registration
}

// NewExporter registers the instruments on meter and reads from engine.
func NewExporter(meter metric.Meter, engine *caseguard.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is [NewExporter] over any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[caseguard.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, suffix := range internaldefs.HistogramBoundSuffix {
		e.leAttrs = append(e.leAttrs, metric.WithAttributes(attribute.String("le", suffix)))
	}

	var instruments []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		instruments = append(instruments, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total observations."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		e.latency = append(e.latency, latencySeries{id: def.ID, buckets: buckets, count: count})
		instruments = append(instruments, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.dropped = dropped
	instruments = append(instruments, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, instruments...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}
	for _, s := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[s.id]))
		for i, n := range cumulative {
			o.ObserveInt64(s.buckets, int64(n), e.leAttrs[i])
		}
		o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
