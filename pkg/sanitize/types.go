package sanitize

// Default limits applied when the corresponding Config field is zero.
const (
	DefaultMaxInputLength      = 10000
	DefaultMaxOutputMultiplier = 10
	DefaultTagPrefix           = "LYRA"
)

// RedactionToken replaces any masked span in validated output.
const RedactionToken = "[REDACTED]"

// Config bundles the tunables for a Sanitizer.
type Config struct {
	// MaxInputLength is the clamp applied at the end of the pipeline,
	// measured in runes.
	MaxInputLength int
	// TagPrefix is the session-tag family prefix whose markup is stripped
	// from untrusted input.
	TagPrefix string
}

// Result summarises one sanitize call. Pure value, one per call.
type Result struct {
	SanitizedText          string   `json:"sanitized_text"`
	OriginalLength         int      `json:"original_length"`
	RemovedTags            int      `json:"removed_tags"`
	RemovedZeroWidth       int      `json:"removed_zero_width"`
	DangerousPatternsFound []string `json:"dangerous_patterns_found,omitempty"`
	HadWarnings            bool     `json:"had_warnings"`
	WasTruncated           bool     `json:"was_truncated"`
}

// ValidatorConfig bundles the tunables for a Validator.
type ValidatorConfig struct {
	// MaxOutputMultiplier bounds output length at
	// ExpectedMaxLength × MaxOutputMultiplier.
	MaxOutputMultiplier int
}

// ValidateOptions carries per-call context for output validation.
type ValidateOptions struct {
	// ExpectedMaxLength is the caller's expectation for this generation;
	// zero disables the length bound.
	ExpectedMaxLength int
	// SecretFragments are explicitly-marked secrets (the active session tag
	// name, prompt-internal markers) whose reappearance counts as leakage.
	// Generic word overlap with the system prompt is deliberately not checked.
	SecretFragments []string
}

// ValidationResult summarises one output validation call.
type ValidationResult struct {
	ValidatedText        string   `json:"validated_text"`
	HadSuspiciousContent bool     `json:"had_suspicious_content"`
	URLsFound            []string `json:"urls_found,omitempty"`
	IPsFound             []string `json:"ips_found,omitempty"`
	LeakageDetected      bool     `json:"leakage_detected"`
	WasTruncated         bool     `json:"was_truncated"`
}
