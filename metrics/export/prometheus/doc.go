// Package prometheus exposes tokenguard engine metrics as a prometheus.Collector.
//
// Counter names are prefixed tokenguard_*_total; the single histogram is
// tokenguard_validate_latency_seconds. Callers either register the exporter in their
// own registry or mount [PrometheusExporter.Handler], which uses a private one.
package prometheus
