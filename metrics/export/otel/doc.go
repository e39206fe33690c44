// Package otel publishes caseguard engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] creates one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [caseguard.Engine.MetricsSnapshot] on each collection. Callers own the
// MeterProvider.
package otel
