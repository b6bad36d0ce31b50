// Package schema implements the response-boundary allowlisting of the
// Lancet pipeline: a hot-reloading cache of per-tool JSON schemas, the
// recursive allowlist filter that drops undeclared response fields, and the
// sanitized error payloads returned to external clients.
//
// The boundary is fail-open for configuration gaps (a missing schema passes
// the response through with a warning) and fail-soft for content findings
// (fields are masked or dropped, never the whole call).
package schema
