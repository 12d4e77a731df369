package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// LocalStrategy implements email and password signup and login.
type LocalStrategy struct {
	store    Store
	hasher   Hasher
	logger   *slog.Logger
	observer Observer
}

// LocalOption configures a LocalStrategy during construction.
type LocalOption func(*LocalStrategy)

// WithHasher replaces the default bcrypt hasher.
func WithHasher(h Hasher) LocalOption {
	return func(s *LocalStrategy) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithLocalLogger configures the strategy logger.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(s *LocalStrategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocalObserver registers an observer notified after every operation.
func WithLocalObserver(o Observer) LocalOption {
	return func(s *LocalStrategy) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewLocalStrategy creates a local strategy backed by store.
// Defaults: bcrypt with bcrypt.DefaultCost, logger discards.
func NewLocalStrategy(store Store, opts ...LocalOption) *LocalStrategy {
	s := &LocalStrategy{
		store:    store,
		hasher:   NewBcryptHasher(bcrypt.DefaultCost),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers local credentials.
//
// For an authenticated principal the credentials are set on (or replace the
// ones of) the signed-in account, which lets a federated user add a password.
// For an anonymous principal a new account is created unless the email is
// already registered.
func (s *LocalStrategy) Signup(ctx context.Context, p Principal, email, password string) (*User, error) {
	u, err := s.signup(ctx, p, email, password)
	s.observer.ObserveLocal(OpSignup, err)
	if err != nil {
		s.log(ctx, OpSignup, err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "local signup",
		logger.Component("local"),
		logger.UserID(u.ID),
		slog.Bool("linked", p.IsAuthenticated()),
	)
	return u, nil
}

// Login verifies local credentials. It never writes to the store.
func (s *LocalStrategy) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.login(ctx, email, password)
	s.observer.ObserveLocal(OpLogin, err)
	if err != nil {
		s.log(ctx, OpLogin, err)
		return nil, err
	}
	return u, nil
}

// Unlink removes the local credentials of the signed-in account. It refuses
// when they are the account's only way to authenticate.
func (s *LocalStrategy) Unlink(ctx context.Context, p Principal) (*User, error) {
	u, err := s.unlink(ctx, p)
	s.observer.ObserveLocal(OpUnlink, err)
	if err != nil {
		s.log(ctx, OpUnlink, err)
		return nil, err
	}
	return u, nil
}

func (s *LocalStrategy) signup(ctx context.Context, p Principal, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("email and password are required"))
	}
	if len(password) > MaxPasswordBytes {
		return nil, errors.Join(ErrInvalidInput, fmt.Errorf("password exceeds %d bytes", MaxPasswordBytes))
	}

	if p.IsAuthenticated() {
		return s.attach(ctx, p.UserID(), email, password)
	}

	_, err := s.store.FindByLocalEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", storageError(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u := NewUser()
	u.Local = &LocalCredential{Email: email, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", storageError(err))
	}
	return u, nil
}

func (s *LocalStrategy) attach(ctx context.Context, userID, email, password string) (*User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", storageError(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u.Local = &LocalCredential{Email: email, PasswordHash: hash}
	if err := s.store.Save(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to save user: %w", storageError(err))
	}
	return u, nil
}

func (s *LocalStrategy) login(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	u, err := s.store.FindByLocalEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSuchUser
		}
		return nil, fmt.Errorf("failed to find user: %w", storageError(err))
	}

	if u.Local == nil || !s.hasher.Verify(password, u.Local.PasswordHash) {
		return nil, ErrBadPassword
	}
	return u, nil
}

func (s *LocalStrategy) unlink(ctx context.Context, p Principal) (*User, error) {
	if !p.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	u, err := s.store.FindByID(ctx, p.UserID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", storageError(err))
	}
	if u.Local == nil {
		return u, nil
	}

	local := u.Local
	u.Local = nil
	if !u.HasCredential() {
		u.Local = local
		return nil, ErrLastCredential
	}

	if err := s.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", storageError(err))
	}
	return u, nil
}

// log records failures. User-facing outcomes are logged at info level,
// everything else as an error.
func (s *LocalStrategy) log(ctx context.Context, op string, err error) {
	level := slog.LevelError
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrNoSuchUser),
		errors.Is(err, ErrBadPassword), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrLastCredential):
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "local "+op+" failed",
		logger.Component("local"),
		logger.Error(err),
	)
}
