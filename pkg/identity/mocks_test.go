package identity_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// MockStore is a mock implementation of identity.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByID(ctx context.Context, id string) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockStore) FindByProvider(ctx context.Context, provider, providerID string) (*identity.User, error) {
	args := m.Called(ctx, provider, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockStore) FindByLocalEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, u *identity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStore) Save(ctx context.Context, u *identity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

type resolveEvent struct {
	provider string
	outcome  identity.Outcome
	err      error
}

type localEvent struct {
	op  string
	err error
}

// recordingObserver keeps every observation for later assertions.
type recordingObserver struct {
	mu       sync.Mutex
	resolves []resolveEvent
	locals   []localEvent
}

func (o *recordingObserver) ObserveResolve(provider string, outcome identity.Outcome, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolves = append(o.resolves, resolveEvent{provider, outcome, err})
}

func (o *recordingObserver) ObserveLocal(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locals = append(o.locals, localEvent{op, err})
}
