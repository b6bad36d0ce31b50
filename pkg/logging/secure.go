package logging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// MaxPreviewLength bounds the preview retained for any logged text.
const MaxPreviewLength = 100

// previewMask replaces embedded secret markers inside log previews.
const previewMask = "[MASKED]"

// absPathPattern matches unix-style absolute path runs. Used to scrub
// filesystem layout out of messages before they reach a log sink.
var absPathPattern = regexp.MustCompile(`(?:^|[\s"'(=])(/[\w.@+-]+)+/?`)

// TextSummary is what the secure logger records instead of raw text: enough
// to correlate and measure, never enough to reconstruct.
type TextSummary struct {
	ContentHash string `json:"content_hash"`
	Length      int    `json:"length"`
	Preview     string `json:"preview"`
}

// SecureLogger logs LLM inputs and outputs without ever recording them
// verbatim. Secrets registered at construction are masked out of previews.
type SecureLogger struct {
	logger  *slog.Logger
	secrets []string
}

// NewSecureLogger creates a SecureLogger. A nil logger falls back to
// slog.Default(). Secrets may be extended per call site with WithSecrets.
func NewSecureLogger(logger *slog.Logger, secrets ...string) *SecureLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecureLogger{logger: logger, secrets: secrets}
}

// WithSecrets returns a copy masking the additional secrets as well.
func (l *SecureLogger) WithSecrets(secrets ...string) *SecureLogger {
	merged := make([]string, 0, len(l.secrets)+len(secrets))
	merged = append(merged, l.secrets...)
	merged = append(merged, secrets...)
	return &SecureLogger{logger: l.logger, secrets: merged}
}

// Summarize reduces text to a hash, a length, and a masked preview.
func (l *SecureLogger) Summarize(text string) TextSummary {
	sum := sha256.Sum256([]byte(text))

	preview := text
	for _, secret := range l.secrets {
		if secret == "" {
			continue
		}
		preview = strings.ReplaceAll(preview, secret, previewMask)
	}
	if runes := []rune(preview); len(runes) > MaxPreviewLength {
		preview = string(runes[:MaxPreviewLength]) + "..."
	}

	return TextSummary{
		ContentHash: hex.EncodeToString(sum[:])[:16],
		Length:      len([]rune(text)),
		Preview:     preview,
	}
}

// LogLLMIO records one model interaction as input/output summaries. Raw text
// never reaches the sink.
func (l *SecureLogger) LogLLMIO(ctx context.Context, operation, input, output string) {
	in := l.Summarize(input)
	out := l.Summarize(output)
	l.logger.LogAttrs(ctx, slog.LevelInfo, "LLM interaction",
		slog.String("operation", operation),
		slog.Group("input",
			slog.String("content_hash", in.ContentHash),
			slog.Int("length", in.Length),
			slog.String("preview", in.Preview),
		),
		slog.Group("output",
			slog.String("content_hash", out.ContentHash),
			slog.Int("length", out.Length),
			slog.String("preview", out.Preview),
		),
	)
}

// LogException records an error with its type, a path-free single-line
// message, and the caller's correlation id.
func (l *SecureLogger) LogException(ctx context.Context, err error, errorID string) {
	if err == nil {
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelError, "Exception",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("message", ScrubMessage(err.Error())),
		slog.String("error_id", errorID),
	)
}

// ScrubMessage strips absolute filesystem paths and collapses the message to
// its first line, keeping traceback bodies out of any log or client payload.
func ScrubMessage(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	msg = absPathPattern.ReplaceAllStringFunc(msg, func(m string) string {
		if m == "" {
			return m
		}
		// Keep the leading delimiter the pattern swallowed, if any.
		if m[0] != '/' {
			return string(m[0]) + "[path]"
		}
		return "[path]"
	})
	return strings.TrimSpace(msg)
}
