package session

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state behind a session cookie. Principal holds
// the identity.Codec value of the signed-in user and is empty for anonymous
// visitors.
type Session struct {
	ID             uuid.UUID         `json:"id"`
	Token          string            `json:"token"`
	Principal      string            `json:"principal,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

func newSession(token string, now, expiresAt time.Time) *Session {
	return &Session{
		ID:             uuid.New(),
		Token:          token,
		Data:           make(map[string]string),
		ExpiresAt:      expiresAt,
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

// IsAuthenticated reports whether a user is bound to the session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Principal != ""
}

// IsExpired reports whether the session expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return s != nil && !now.Before(s.ExpiresAt)
}

// Value returns the value stored under key.
func (s *Session) Value(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// SetValue stores value under key.
func (s *Session) SetValue(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// DeleteValue removes key.
func (s *Session) DeleteValue(key string) {
	delete(s.Data, key)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Data = maps.Clone(s.Data)
	return &c
}
