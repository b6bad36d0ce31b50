// Package telemetry exposes Prometheus metrics and OpenTelemetry span
// enrichment for the Lancet pipeline. Metrics live on a private registry so
// embedding processes control exposition; span attributes are only recorded
// when the caller already carries an active span.
package telemetry
