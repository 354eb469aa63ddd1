// Package otel provides OpenTelemetry metric exporter bindings for tokenguard counters
// and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter and, per
// histogram, one Int64ObservableGauge per cumulative bucket plus count and sum gauges.
// A single callback reads [tokenguard.Engine.MetricsSnapshot] on each collection cycle.
// Callers own the MeterProvider.
package otel
