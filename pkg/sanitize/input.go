package sanitize

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitizer normalizes untrusted text and strips threats before the text can
// enter a prompt. Construct once, use from any goroutine.
type Sanitizer struct {
	maxInputLength int
	tagPrefix      string
	tagPattern     *regexp.Regexp
}

// NewSanitizer constructs a Sanitizer for the provided configuration.
// Zero-valued fields fall back to package defaults.
func NewSanitizer(cfg Config) *Sanitizer {
	maxLen := cfg.MaxInputLength
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	prefix := cfg.TagPrefix
	if prefix == "" {
		prefix = DefaultTagPrefix
	}

	// Matches the session-tag family: <PREFIX-hex>, </PREFIX-hex>, and the
	// bare PREFIX-hex form.
	tagPattern := regexp.MustCompile(fmt.Sprintf(`(?i)(</?%s-[0-9a-f]+>|\b%s-[0-9a-f]+\b)`,
		regexp.QuoteMeta(prefix), regexp.QuoteMeta(prefix)))

	return &Sanitizer{
		maxInputLength: maxLen,
		tagPrefix:      prefix,
		tagPattern:     tagPattern,
	}
}

// MaxInputLength reports the configured clamp, in runes.
func (s *Sanitizer) MaxInputLength() int { return s.maxInputLength }

// TagPrefix reports the session-tag prefix this sanitizer strips.
func (s *Sanitizer) TagPrefix() string { return s.tagPrefix }

// Sanitize runs the fixed, order-dependent pipeline over text. It never
// fails; empty input yields a zeroed Result. Re-sanitizing its own output
// removes zero further tags and zero-width characters.
func (s *Sanitizer) Sanitize(text string) Result {
	if text == "" {
		return Result{}
	}

	result := Result{OriginalLength: len([]rune(text))}

	// 1. Unicode NFKC normalization defeats full-width and confusable
	// character evasion before any pattern matching happens.
	text = norm.NFKC.String(text)

	// 2-5. Entity decoding, zero-width stripping, control stripping, and
	// session-tag removal loop together to a true fixpoint: removing a tag
	// or a control character can expose an entity split around it, and vice
	// versa. Each productive pass consumes escaping layers or stripped
	// characters, so total work stays bounded by the input length even for
	// adversarial nesting.
	for {
		prev := text
		text = decodeEntities(text)

		var zw int
		text, zw = stripZeroWidth(text)
		result.RemovedZeroWidth += zw

		// Control characters other than \n \t \r carry no legitimate
		// meaning in research text.
		text = stripControl(text)

		var tags int
		text, tags = s.stripSessionTags(text)
		result.RemovedTags += tags

		if text == prev {
			break
		}
	}
	if result.RemovedTags > 0 {
		result.HadWarnings = true
	}

	// 6. Dangerous instruction patterns are recorded, not stripped. The
	// caller owns the policy decision.
	for _, p := range dangerousPatterns {
		if p.expr.MatchString(text) {
			result.DangerousPatternsFound = append(result.DangerousPatternsFound, p.name)
		}
	}
	if len(result.DangerousPatternsFound) > 0 {
		result.HadWarnings = true
	}

	// 7. Length clamp.
	if runes := []rune(text); len(runes) > s.maxInputLength {
		text = string(runes[:s.maxInputLength])
		result.WasTruncated = true
	}

	result.SanitizedText = text
	return result
}

// decodeEntities unescapes to a fixpoint. Each productive pass consumes at
// least one layer of ampersand escaping, so the loop terminates within the
// input's ampersand count regardless of nesting depth.
func decodeEntities(text string) string {
	for {
		decoded := html.UnescapeString(text)
		if decoded == text {
			return text
		}
		text = decoded
	}
}

func stripZeroWidth(text string) (string, int) {
	removed := 0
	out := strings.Map(func(r rune) rune {
		if _, ok := zeroWidthRunes[r]; ok {
			removed++
			return -1
		}
		return r
	}, text)
	return out, removed
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t', '\r':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}

// stripSessionTags removes tag markup to a fixpoint so nested fragments
// cannot reassemble into a fresh tag. Each productive pass shortens the text.
func (s *Sanitizer) stripSessionTags(text string) (string, int) {
	removed := 0
	for {
		matches := s.tagPattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			return text, removed
		}
		removed += len(matches)
		text = s.tagPattern.ReplaceAllString(text, "")
	}
}
