package session

import "errors"

var (
	// ErrSessionExpired indicates the session has expired
	ErrSessionExpired = errors.New("session.expired")

	// ErrSessionNotFound indicates no session was found
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrTokenGeneration indicates token generation failed
	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrStore wraps failures of the session store backend
	ErrStore = errors.New("session.store_failed")

	ErrFailedToParseRedisURL = errors.New("session: failed to parse redis connection string")
	ErrRedisNotReady         = errors.New("session: redis did not become ready within the given time period")
	ErrHealthcheckFailed     = errors.New("session: redis healthcheck failed")
)
