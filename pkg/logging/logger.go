// Package logging provides structured logging configuration plus the
// redacted logging surfaces of the Lancet pipeline: the SecureLogger that
// never emits raw LLM text, and the append-only AuditLogger journal.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// SetupLogger configures the global zerolog logger for CLI binaries and
// routes slog.Default() through it, so components holding *slog.Logger
// handles emit to the same sink at the same level.
func SetupLogger(cfg Config) {
	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(NewZerologHandler(log.Logger)))
}

// zerologHandler adapts a zerolog.Logger to the slog.Handler contract.
// Groups are flattened into dotted key prefixes.
type zerologHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewZerologHandler returns an slog.Handler that emits through logger.
// Level filtering follows the zerolog global level.
func NewZerologHandler(logger zerolog.Logger) slog.Handler {
	return &zerologHandler{logger: logger}
}

func (h *zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerologLevel(level) >= zerolog.GlobalLevel()
}

func (h *zerologHandler) Handle(_ context.Context, rec slog.Record) error {
	ev := h.logger.WithLevel(toZerologLevel(rec.Level))
	// Attrs stored by WithAttrs are already qualified.
	for _, a := range h.attrs {
		writeAttr(ev, "", a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		writeAttr(ev, h.prefix, a)
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		merged = append(merged, a)
	}
	return &zerologHandler{logger: h.logger, attrs: merged, prefix: h.prefix}
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	prefix := name
	if h.prefix != "" {
		prefix = h.prefix + "." + name
	}
	return &zerologHandler{logger: h.logger, attrs: h.attrs, prefix: prefix}
}

func writeAttr(ev *zerolog.Event, prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + a.Key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(ev, key, ga)
		}
		return
	}
	ev.Interface(key, a.Value.Resolve().Any())
}

func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
