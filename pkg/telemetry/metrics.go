package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the security pipeline.
type Metrics struct {
	sanitizerWarnings  *prometheus.CounterVec
	domainsBlocked     *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	schemaReloads      *prometheus.CounterVec
	responsesSanitized *prometheus.CounterVec
	fieldsDropped      prometheus.Counter
	verifications      *prometheus.CounterVec
	verifyDuration     prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		sanitizerWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_sanitizer_warnings_total",
				Help: "Sanitizer warnings by kind (tags, zero_width, dangerous_pattern, truncated)",
			},
			[]string{"kind"},
		),
		domainsBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_domains_blocked_total",
				Help: "Domains transitioned to BLOCKED by reason code",
			},
			[]string{"reason"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_notifications_total",
				Help: "Blocked-domain notification deliveries by status (sent, failed)",
			},
			[]string{"status"},
		),
		schemaReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_schema_reloads_total",
				Help: "Tool schema cache reloads by tool name",
			},
			[]string{"tool"},
		),
		responsesSanitized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_responses_sanitized_total",
				Help: "Responses run through allowlist sanitization by tool name",
			},
			[]string{"tool"},
		),
		fieldsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lancet_response_fields_dropped_total",
				Help: "Response keys dropped because the tool schema does not declare them",
			},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lancet_verifications_total",
				Help: "Claim verifications by resulting status",
			},
			[]string{"status"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lancet_verification_duration_seconds",
				Help:    "Wall time of VerifyClaim including the evidence query",
				Buckets: prometheus.DefBuckets,
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.sanitizerWarnings,
		m.domainsBlocked,
		m.notifications,
		m.schemaReloads,
		m.responsesSanitized,
		m.fieldsDropped,
		m.verifications,
		m.verifyDuration,
	)

	return m
}

// RecordSanitizerWarning counts one sanitizer finding of the given kind.
func (m *Metrics) RecordSanitizerWarning(kind string) {
	if m == nil {
		return
	}
	m.sanitizerWarnings.WithLabelValues(kind).Inc()
}

// RecordDomainBlocked counts a BLOCKED transition.
func (m *Metrics) RecordDomainBlocked(reason string) {
	if m == nil {
		return
	}
	m.domainsBlocked.WithLabelValues(reason).Inc()
}

// RecordNotification counts one delivery attempt outcome.
func (m *Metrics) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status).Inc()
}

// RecordSchemaReload counts a schema cache load or reload.
func (m *Metrics) RecordSchemaReload(tool string) {
	if m == nil {
		return
	}
	m.schemaReloads.WithLabelValues(tool).Inc()
}

// RecordResponseSanitized counts one response pass and the keys it dropped.
func (m *Metrics) RecordResponseSanitized(tool string, dropped int) {
	if m == nil {
		return
	}
	m.responsesSanitized.WithLabelValues(tool).Inc()
	if dropped > 0 {
		m.fieldsDropped.Add(float64(dropped))
	}
}

// RecordVerification counts one claim verification and its duration.
func (m *Metrics) RecordVerification(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status).Inc()
	m.verifyDuration.Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for test gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
