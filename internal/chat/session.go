// Package chat ingests messages from independent platform sessions into a
// shared bounded queue. Sessions are isolated from each other: a transient
// failure reconnects with backoff, a revoked credential kills only the one
// session.
package chat

import (
	"context"
	"errors"

	"mintsniper/internal/domain"
)

// ErrUnauthorized marks a session credential as permanently revoked. A
// session returning it is terminated and surfaced to the operator; sibling
// sessions keep running.
var ErrUnauthorized = errors.New("session unauthorized")

// SessionInfo identifies one chat session for logging and metrics.
type SessionInfo struct {
	Platform domain.Platform
	Label    string
}

// Session is one independent connection to a chat platform. Implementations
// normalize platform events into domain.Message; the core never sees wire
// formats.
type Session interface {
	// Describe returns the session identity.
	Describe() SessionInfo

	// Connect establishes the connection. ErrUnauthorized means the
	// credential is revoked and the session must not be retried.
	Connect(ctx context.Context) error

	// Next blocks until the next message arrives or the connection fails.
	// A failed connection returns an error; the caller reconnects unless
	// the error wraps ErrUnauthorized.
	Next(ctx context.Context) (domain.Message, error)

	// Close releases the connection. Safe to call when not connected.
	Close() error
}
