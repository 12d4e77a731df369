package session

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process. Entries expire with the session;
// expired entries are purged every cleanupInterval.
type MemoryStore struct {
	mu    sync.Mutex // guards read-modify-write in Update and Touch
	cache *gocache.Cache
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. A zero cleanupInterval disables
// the background purge; expired entries are then dropped on read.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}
	s.cache.Set(sess.Token, sess.Clone(), ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	v, ok := s.cache.Get(token)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*Session).Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		s.cache.Delete(sess.Token)
		return ErrSessionExpired
	}
	if err := s.cache.Replace(sess.Token, sess.Clone(), ttl); err != nil {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, token string, lastActivity, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(token)
	if !ok {
		return ErrSessionNotFound
	}
	sess := v.(*Session).Clone()
	sess.LastActivityAt = lastActivity
	sess.ExpiresAt = expiresAt
	if err := s.cache.Replace(token, sess, time.Until(expiresAt)); err != nil {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.cache.Delete(token)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet
// purged.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
