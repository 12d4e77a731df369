package session

import (
	"log/slog"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithConfig replaces the whole timeout and naming configuration.
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithAuthenticatedTimeouts overrides the idle timeout and absolute lifetime
// of sessions that carry a principal.
func WithAuthenticatedTimeouts(idle, maxLifetime time.Duration) Option {
	return func(m *Manager) {
		m.config.AuthIdleTimeout = idle
		m.config.AuthMaxLifetime = maxLifetime
	}
}

// WithAnonymousTimeouts overrides the timeouts of anonymous sessions, which
// mostly carry OAuth state between the redirect and the callback.
func WithAnonymousTimeouts(idle, maxLifetime time.Duration) Option {
	return func(m *Manager) {
		m.config.AnonIdleTimeout = idle
		m.config.AnonMaxLifetime = maxLifetime
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
