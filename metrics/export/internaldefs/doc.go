// Package internaldefs holds the metric names, help strings and bucket
// boundaries shared by the Prometheus and OTel exporters.
//
// It performs no I/O and imports no exporter package.
package internaldefs
