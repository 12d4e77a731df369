package session

import (
	"context"
	"time"
)

// Store persists sessions by token. Implementations drop sessions once
// ExpiresAt has passed and return ErrSessionNotFound for them.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// Get returns the session for token.
	Get(ctx context.Context, token string) (*Session, error)

	// Update replaces an existing session. Missing sessions yield
	// ErrSessionNotFound.
	Update(ctx context.Context, s *Session) error

	// Touch records activity and moves the expiry of an existing session.
	Touch(ctx context.Context, token string, lastActivity, expiresAt time.Time) error

	// Delete removes the session for token. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, token string) error
}
