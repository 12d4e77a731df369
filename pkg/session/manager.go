package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// Manager binds requests to sessions and sessions to users. The user is
// reloaded through the codec on every request.
type Manager struct {
	store     Store
	transport Transport
	codec     *identity.Codec
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	activityChan chan activityUpdate
	done         chan struct{}
	stopped      chan struct{}
	closeOnce    sync.Once
}

type activityUpdate struct {
	token     string
	at        time.Time
	expiresAt time.Time
}

// New creates a session manager. The store defaults to a MemoryStore. New
// panics on a nil transport.
func New(codec *identity.Codec, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport:    transport,
		codec:        codec,
		config:       DefaultConfig(),
		logger:       logger.Discard(),
		now:          time.Now,
		activityChan: make(chan activityUpdate, 1000),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.transport == nil {
		panic("session: transport is required")
	}
	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	m.logger = m.logger.With(logger.Component("session"))

	go m.activityWorker()

	return m
}

// Ensure returns the request's session, creating an anonymous one when the
// request carries none.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess, err := m.Get(ctx, r)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return nil, err
	}

	sess, err = m.create(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	idle, _ := m.config.Timeouts(false)
	if err := m.transport.SetToken(w, sess.Token, idle); err != nil {
		_ = m.store.Delete(ctx, sess.Token)
		return nil, err
	}
	return sess, nil
}

// Get returns the request's session.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(m.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Load returns the request's session and signed-in user. A request without a
// session yields (nil, nil, nil). When the session points at a user that no
// longer exists the session is destroyed and the request continues
// anonymously.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, *identity.User, error) {
	sess, err := m.Get(ctx, r)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if !sess.IsAuthenticated() {
		m.trackActivity(sess)
		return sess, nil, nil
	}

	u, err := m.codec.Deserialize(ctx, sess.Principal)
	if err != nil {
		if errors.Is(err, identity.ErrPrincipalNotFound) {
			m.logger.InfoContext(ctx, "session user no longer exists, dropping session",
				logger.UserID(sess.Principal),
			)
			_ = m.store.Delete(ctx, sess.Token)
			m.transport.ClearToken(w)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	m.trackActivity(sess)
	return sess, u, nil
}

// Login binds u to the request's session. The session token is rotated and
// values stored in an earlier anonymous session are carried over.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, u *identity.User) (*Session, error) {
	principal, err := m.codec.Serialize(u)
	if err != nil {
		return nil, err
	}

	var data map[string]string
	if prev, err := m.Get(ctx, r); err == nil {
		data = prev.Data
		if err := m.store.Delete(ctx, prev.Token); err != nil {
			m.logger.WarnContext(ctx, "failed to delete rotated session", logger.Error(err))
		}
	}

	sess, err := m.create(ctx, principal, data)
	if err != nil {
		return nil, err
	}
	idle, _ := m.config.Timeouts(true)
	if err := m.transport.SetToken(w, sess.Token, idle); err != nil {
		_ = m.store.Delete(ctx, sess.Token)
		return nil, err
	}
	m.logger.DebugContext(ctx, "session bound to user", logger.UserID(u.ID))
	return sess, nil
}

// Logout destroys the session and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := m.transport.GetToken(r)
	m.transport.ClearToken(w)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, token)
}

// SetValue stores a value on the request's session, creating an anonymous
// session when needed.
func (m *Manager) SetValue(ctx context.Context, w http.ResponseWriter, r *http.Request, key, value string) error {
	return m.SetValues(ctx, w, r, map[string]string{key: value})
}

// SetValues stores several values in one write. Use it instead of repeated
// SetValue calls when the request may not carry a session yet: each Ensure on
// such a request would start a new one.
func (m *Manager) SetValues(ctx context.Context, w http.ResponseWriter, r *http.Request, values map[string]string) error {
	sess, err := m.Ensure(ctx, w, r)
	if err != nil {
		return err
	}
	for k, v := range values {
		sess.SetValue(k, v)
	}
	return m.store.Update(ctx, sess)
}

// PopValue returns and removes a value from the request's session.
func (m *Manager) PopValue(ctx context.Context, r *http.Request, key string) (string, bool, error) {
	sess, err := m.Get(ctx, r)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return "", false, nil
		}
		return "", false, err
	}
	v, ok := sess.Value(key)
	if !ok {
		return "", false, nil
	}
	sess.DeleteValue(key)
	if err := m.store.Update(ctx, sess); err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *Manager) create(ctx context.Context, principal string, data map[string]string) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := m.now()
	idle, maxLifetime := m.config.Timeouts(principal != "")
	sess := newSession(token, now, expiry(now, now, idle, maxLifetime))
	sess.Principal = principal
	for k, v := range data {
		sess.SetValue(k, v)
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// trackActivity queues an expiry extension once the activity threshold has
// passed since the last recorded activity.
func (m *Manager) trackActivity(sess *Session) {
	now := m.now()
	if now.Sub(sess.LastActivityAt) < m.config.ActivityUpdateThreshold {
		return
	}
	idle, maxLifetime := m.config.Timeouts(sess.IsAuthenticated())
	select {
	case m.activityChan <- activityUpdate{token: sess.Token, at: now, expiresAt: expiry(sess.CreatedAt, now, idle, maxLifetime)}:
	default:
		// Channel full, drop update (prevents blocking hot paths)
	}
}

func (m *Manager) activityWorker() {
	defer close(m.stopped)
	for {
		select {
		case u := <-m.activityChan:
			m.touch(u)
		case <-m.done:
			for {
				select {
				case u := <-m.activityChan:
					m.touch(u)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) touch(u activityUpdate) {
	err := m.store.Touch(context.Background(), u.token, u.at, u.expiresAt)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("failed to record session activity", logger.Error(err))
	}
}

// Close stops the activity worker after draining queued updates.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	<-m.stopped
	return nil
}

// expiry returns the earlier of the idle deadline and the lifetime deadline.
func expiry(createdAt, now time.Time, idle, maxLifetime time.Duration) time.Time {
	idleExpiry := now.Add(idle)
	maxExpiry := createdAt.Add(maxLifetime)
	if maxExpiry.Before(idleExpiry) {
		return maxExpiry
	}
	return idleExpiry
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
