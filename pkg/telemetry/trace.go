package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

// RecordVerificationSpan annotates the active span with the low-cardinality
// outcome of a claim verification. Claim ids are deliberately omitted; the
// tag_id-style correlation lives in logs, not traces.
func RecordVerificationSpan(ctx context.Context, result *domain.VerificationResult) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.SpanContext().IsValid() || result == nil {
		return
	}
	span.SetAttributes(
		attribute.String("lancet.verification.status", string(result.Status)),
		attribute.String("lancet.verification.reason", string(result.Reason)),
		attribute.String("lancet.trust.level", string(result.NewTrustLevel)),
		attribute.String("lancet.trust.promotion", string(result.Promotion)),
	)
}

// RecordSanitizationSpan annotates the active span with sanitizer findings.
func RecordSanitizationSpan(ctx context.Context, removedTags, removedZeroWidth, dangerousPatterns int, truncated bool) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.SpanContext().IsValid() {
		return
	}
	span.SetAttributes(
		attribute.Int("lancet.sanitize.removed_tags", removedTags),
		attribute.Int("lancet.sanitize.removed_zero_width", removedZeroWidth),
		attribute.Int("lancet.sanitize.dangerous_patterns", dangerousPatterns),
		attribute.Bool("lancet.sanitize.truncated", truncated),
	)
}
