// Package prompt mints per-call session tags and composes secure prompts
// that keep trusted instructions and untrusted payloads apart until the
// final flatten at the model-call boundary.
package prompt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SessionTag is a per-call isolation marker delimiting untrusted content
// inside a prompt. It is an isolation marker, not a capability token: the
// design provides no cryptographic secrecy for it, only uniqueness.
// Created per LLM call, never persisted.
type SessionTag struct {
	// Name has the form PREFIX-<32 lowercase hex> and is unique per call.
	Name string
	// ID is the first 8 hex characters of SHA-256(Name), safe to log for
	// correlation without exposing the full marker.
	ID string
	// Open and Close are the literal markers placed around untrusted text.
	Open  string
	Close string
}

// GenerateSessionTag returns a fresh tag whose suffix is a 128-bit
// cryptographically random value. No external state is consulted; collisions
// are practically impossible.
func GenerateSessionTag(prefix string) (SessionTag, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return SessionTag{}, fmt.Errorf("prompt: reading random tag bytes: %w", err)
	}

	name := fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf[:]))
	sum := sha256.Sum256([]byte(name))

	return SessionTag{
		Name:  name,
		ID:    hex.EncodeToString(sum[:])[:8],
		Open:  "<" + name + ">",
		Close: "</" + name + ">",
	}, nil
}
