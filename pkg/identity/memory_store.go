package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Both uniqueness constraints are checked
// under one lock, so concurrent creates for the same identity behave like a
// database with unique indexes.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*User
	byProvider map[providerKey]string
	byEmail    map[string]string
	now        func() time.Time
}

type providerKey struct {
	provider string
	id       string
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*User),
		byProvider: make(map[providerKey]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindByProvider(_ context.Context, provider, providerID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byProvider[providerKey{provider, providerID}]
	if !ok {
		return nil, ErrNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryStore) FindByLocalEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(u, ""); err != nil {
		return err
	}

	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Providers == nil {
		u.Providers = make(map[string]ProviderLink)
	}

	s.put(u.Clone())
	return nil
}

func (s *MemoryStore) Save(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if err := s.checkUnique(u, u.ID); err != nil {
		return err
	}

	s.unindex(prev)
	u.CreatedAt = prev.CreatedAt
	u.UpdatedAt = s.now()
	s.put(u.Clone())
	return nil
}

// Delete removes a user. Resolution never deletes accounts; this exists for
// administrative tooling and tests.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	s.unindex(u)
	delete(s.users, id)
	return nil
}

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// checkUnique reports ErrDuplicate if any key of u is held by a user other
// than self.
func (s *MemoryStore) checkUnique(u *User, self string) error {
	if u.Local != nil {
		if owner, ok := s.byEmail[u.Local.Email]; ok && owner != self {
			return ErrDuplicate
		}
	}
	for provider, l := range u.Providers {
		if owner, ok := s.byProvider[providerKey{provider, l.ProviderID}]; ok && owner != self {
			return ErrDuplicate
		}
	}
	return nil
}

func (s *MemoryStore) put(u *User) {
	s.users[u.ID] = u
	if u.Local != nil {
		s.byEmail[u.Local.Email] = u.ID
	}
	for provider, l := range u.Providers {
		s.byProvider[providerKey{provider, l.ProviderID}] = u.ID
	}
}

func (s *MemoryStore) unindex(u *User) {
	if u.Local != nil {
		delete(s.byEmail, u.Local.Email)
	}
	for provider, l := range u.Providers {
		delete(s.byProvider, providerKey{provider, l.ProviderID})
	}
}
