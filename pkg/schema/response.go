package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
	"github.com/k-shibuki/lyra-sub001/pkg/sanitize"
	"github.com/k-shibuki/lyra-sub001/pkg/telemetry"
)

// SanitizeOptions carries per-call context for response sanitization.
type SanitizeOptions struct {
	// SecretFragments are the markers (the active session tag name) whose
	// appearance in an LLM-generated field counts as leakage.
	SecretFragments []string
}

// ResponseSanitizer filters tool responses down to their schema-declared
// fields and re-validates LLM-generated values on the way out.
type ResponseSanitizer struct {
	registry  *Registry
	validator *sanitize.Validator
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// NewResponseSanitizer wires the sanitizer to its schema source and output
// validator. metrics may be nil.
func NewResponseSanitizer(registry *Registry, validator *sanitize.Validator, logger *slog.Logger, metrics *telemetry.Metrics) *ResponseSanitizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseSanitizer{
		registry:  registry,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
	}
}

// SanitizeResponse walks the response against the tool's schema, dropping
// every key the schema does not declare. A missing or malformed schema is a
// configuration gap: the response passes through unmodified with a logged
// warning, never a crash on the response path.
func (rs *ResponseSanitizer) SanitizeResponse(ctx context.Context, response map[string]any, toolName string, opts SanitizeOptions) map[string]any {
	if response == nil {
		return nil
	}

	toolSchema, err := rs.registry.Get(toolName)
	if err != nil {
		rs.logger.WarnContext(ctx, "no usable schema for tool, passing response through",
			"tool", toolName, "error", err)
		return response
	}

	walk := &responseWalk{validator: rs.validator, secrets: opts.SecretFragments}
	filtered := walk.filter(response, toolSchema, "")

	// The reserved metadata key survives regardless of schema, and collects
	// any security warnings raised during the walk.
	if meta, ok := response[domain.MetaKey]; ok {
		filtered[domain.MetaKey] = meta
	}
	if len(walk.warnings) > 0 {
		filtered[domain.MetaKey] = appendWarnings(filtered[domain.MetaKey], walk.warnings)
	}

	rs.metrics.RecordResponseSanitized(toolName, walk.dropped)
	if walk.dropped > 0 {
		rs.logger.DebugContext(ctx, "dropped undeclared response fields",
			"tool", toolName, "count", walk.dropped)
	}
	return filtered
}

// responseWalk accumulates findings across one recursive filter pass.
type responseWalk struct {
	validator *sanitize.Validator
	secrets   []string
	warnings  []string
	dropped   int
}

func (w *responseWalk) filter(value map[string]any, toolSchema *ToolSchema, path string) map[string]any {
	out := make(map[string]any, len(value))
	for key, val := range value {
		if key == domain.MetaKey {
			continue // reattached by the caller
		}
		sub, declared := toolSchema.Properties[key]
		if !declared {
			w.dropped++
			continue
		}

		fieldPath := key
		if path != "" {
			fieldPath = path + "." + key
		}

		if nested, ok := val.(map[string]any); ok && sub != nil && len(sub.Properties) > 0 {
			out[key] = w.filter(nested, sub, fieldPath)
			continue
		}

		if sub != nil && sub.LLMGenerated {
			if text, ok := val.(string); ok {
				val = w.revalidate(text, fieldPath)
			}
		}
		out[key] = val
	}
	return out
}

func (w *responseWalk) revalidate(text, fieldPath string) string {
	result := w.validator.Validate(text, sanitize.ValidateOptions{SecretFragments: w.secrets})
	if result.LeakageDetected {
		w.warnings = append(w.warnings,
			fmt.Sprintf("field %s contained a prompt-internal marker and was redacted", fieldPath))
		return result.ValidatedText
	}
	return text
}

// appendWarnings merges walk warnings into the response metadata, creating
// the metadata map when the response carried none.
func appendWarnings(meta any, warnings []string) map[string]any {
	metaMap, ok := meta.(map[string]any)
	if !ok || metaMap == nil {
		metaMap = make(map[string]any)
	}
	// Metadata that went through a JSON round trip carries []any, metadata
	// built in-process carries []string. Both are preserved.
	var existing []string
	switch prior := metaMap["warnings"].(type) {
	case []string:
		existing = prior
	case []any:
		for _, w := range prior {
			if s, ok := w.(string); ok {
				existing = append(existing, s)
			}
		}
	}
	metaMap["warnings"] = append(existing, warnings...)
	return metaMap
}
