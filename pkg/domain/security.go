package domain

import "time"

// Severity grades a security event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEvent is one record in the append-only audit journal. Details is
// the only field permitted to carry free-form data, and callers are
// contractually required to have sanitized it before logging.
type SecurityEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Severity  Severity       `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ClaimMeta is the per-claim entry attached to an outgoing response.
// Built fresh per response, never persisted.
type ClaimMeta struct {
	ClaimID    string             `json:"claim_id"`
	Domain     string             `json:"domain"`
	TrustLevel TrustLevel         `json:"trust_level"`
	Status     VerificationStatus `json:"verification_status"`
}

// MetaKey is the reserved response key carrying security/trust metadata.
// The response sanitizer always lets it through regardless of tool schema.
const MetaKey = "_lancet_meta"
