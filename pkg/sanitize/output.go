package sanitize

import "regexp"

// Validator inspects model output for exfiltration markers and leakage of
// prompt-internal secrets. Construct once, use from any goroutine.
type Validator struct {
	maxOutputMultiplier int
}

// NewValidator constructs a Validator for the provided configuration.
func NewValidator(cfg ValidatorConfig) *Validator {
	mult := cfg.MaxOutputMultiplier
	if mult <= 0 {
		mult = DefaultMaxOutputMultiplier
	}
	return &Validator{maxOutputMultiplier: mult}
}

// Validate scans text for URL and IP literals, masks any explicitly-marked
// secret fragment, and bounds the output length. It never fails; empty input
// yields a result with empty ValidatedText.
func (v *Validator) Validate(text string, opts ValidateOptions) ValidationResult {
	result := ValidationResult{ValidatedText: text}
	if text == "" {
		return result
	}

	// Exfiltration attempts encode callback addresses in output, so any URL
	// or IP literal marks the output suspicious.
	result.URLsFound = urlPattern.FindAllString(text, -1)
	result.IPsFound = ipv4Pattern.FindAllString(text, -1)
	result.IPsFound = append(result.IPsFound, ipv6Pattern.FindAllString(text, -1)...)
	if len(result.URLsFound) > 0 || len(result.IPsFound) > 0 {
		result.HadSuspiciousContent = true
	}

	// Leakage detection is exact-match on explicitly-marked secrets, never
	// generic overlap with the system prompt.
	for _, secret := range opts.SecretFragments {
		if secret == "" {
			continue
		}
		masked, found := maskSecret(result.ValidatedText, secret)
		if found {
			result.ValidatedText = masked
			result.LeakageDetected = true
		}
	}

	if opts.ExpectedMaxLength > 0 {
		bound := opts.ExpectedMaxLength * v.maxOutputMultiplier
		if runes := []rune(result.ValidatedText); len(runes) > bound {
			result.ValidatedText = string(runes[:bound])
			result.WasTruncated = true
		}
	}

	return result
}

// Mask replaces every occurrence of each secret with the redaction token.
// Used by callers that need masking without a full validation pass.
func Mask(text string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		text, _ = maskSecret(text, secret)
	}
	return text
}

// maskSecret replaces case-insensitive occurrences of secret with the
// redaction token. A compiled pattern keeps the match rune-aligned on the
// original text; folding the text by hand is unsafe because ToLower can
// change byte length.
func maskSecret(text, secret string) (string, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(secret))
	if err != nil {
		return text, false
	}
	if !re.MatchString(text) {
		return text, false
	}
	return re.ReplaceAllLiteralString(text, RedactionToken), true
}
