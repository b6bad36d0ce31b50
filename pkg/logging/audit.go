package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

// AuditLogger keeps an append-only journal of security events. It is the
// only channel permitted to carry full detail maps; callers are required to
// have sanitized Details before logging.
type AuditLogger struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to
// slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, now: time.Now}
}

// LogSecurityEvent appends one event with a generated id and returns it.
func (a *AuditLogger) LogSecurityEvent(ctx context.Context, eventType string, severity domain.Severity, details map[string]any) domain.SecurityEvent {
	event := domain.SecurityEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Severity:  severity,
		Details:   details,
		Timestamp: a.now().UTC(),
	}

	a.mu.Lock()
	a.events = append(a.events, event)
	a.mu.Unlock()

	level := slog.LevelInfo
	switch severity {
	case domain.SeverityWarning:
		level = slog.LevelWarn
	case domain.SeverityCritical:
		level = slog.LevelError
	}
	a.logger.LogAttrs(ctx, level, "Security event",
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType),
		slog.String("severity", string(event.Severity)),
		slog.Any("details", event.Details),
	)

	return event
}

// Events returns a copy of the journal in append order.
func (a *AuditLogger) Events() []domain.SecurityEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.SecurityEvent, len(a.events))
	copy(out, a.events)
	return out
}
