package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// Resolution is the result of a successful Resolve call.
type Resolution struct {
	User    *User
	Outcome Outcome
}

// Resolver decides, for every provider callback, whether to log in a known
// account, create a new one, or attach the credential to the signed-in user.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	store          Store
	logger         *slog.Logger
	observer       Observer
	refreshOnLogin bool
}

// ResolverOption configures a Resolver during construction.
type ResolverOption func(*Resolver)

// WithLogger configures the resolver logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers an observer notified after every resolution.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithRefreshOnLogin controls whether a login that presents a token different
// from the stored one writes the new token back. Enabled by default so the
// stored token is always the most recent one; when disabled, a login of an
// attached account never writes.
func WithRefreshOnLogin(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.refreshOnLogin = enabled
	}
}

// NewResolver constructs a resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:          store,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:       noopObserver{},
		refreshOnLogin: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a provider credential and the caller's principal to an account.
//
// An authenticated principal always links: the credential overwrites the
// account's link for that provider. An anonymous principal logs in the account
// already holding (provider, provider id), re-attaches it if the link was
// detached, or creates a new account. A duplicate-key rejection on create is
// treated as a concurrent create of the same identity and the lookup is
// retried once.
func (r *Resolver) Resolve(ctx context.Context, cred Credential, p Principal) (*Resolution, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Resolution
		err error
	)
	if p.IsAuthenticated() {
		res, err = r.link(ctx, cred, p.UserID())
	} else {
		res, err = r.login(ctx, cred)
	}

	if err != nil {
		r.observer.ObserveResolve(cred.Provider, "", err)
		r.logger.ErrorContext(ctx, "identity resolution failed",
			logger.Component("resolver"),
			logger.Provider(cred.Provider),
			slog.String("principal", p.String()),
			logger.Error(err),
		)
		return nil, err
	}

	r.observer.ObserveResolve(cred.Provider, res.Outcome, nil)
	r.logger.InfoContext(ctx, "identity resolved",
		logger.Component("resolver"),
		logger.Provider(cred.Provider),
		logger.Outcome(string(res.Outcome)),
		logger.UserID(res.User.ID),
	)
	return res, nil
}

// Unlink detaches the provider link of the signed-in user by clearing its
// token. The provider id is kept, so logging in with that provider again
// re-attaches the same account instead of creating a new one.
func (r *Resolver) Unlink(ctx context.Context, p Principal, provider string) (*User, error) {
	if !p.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if !IsFederated(provider) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	u, err := r.loadPrincipal(ctx, p.UserID())
	if err != nil {
		return nil, err
	}

	l, ok := u.Link(provider)
	if !ok || !l.Attached() {
		return u, nil
	}

	l.Token = ""
	u.SetLink(provider, l)
	if err := r.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to unlink %s: %w", provider, storageError(err))
	}

	r.logger.InfoContext(ctx, "provider unlinked",
		logger.Component("resolver"),
		logger.Provider(provider),
		logger.UserID(u.ID),
	)
	return u, nil
}

func (r *Resolver) link(ctx context.Context, cred Credential, userID string) (*Resolution, error) {
	u, err := r.loadPrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.SetLink(cred.Provider, cred.Link())
	if err := r.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to link %s: %w", cred.Provider, storageError(err))
	}
	return &Resolution{User: u, Outcome: OutcomeLinked}, nil
}

func (r *Resolver) login(ctx context.Context, cred Credential) (*Resolution, error) {
	for attempt := 0; ; attempt++ {
		u, err := r.store.FindByProvider(ctx, cred.Provider, cred.ProviderID)
		switch {
		case err == nil:
			return r.existing(ctx, u, cred)
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("failed to look up %s account: %w", cred.Provider, storageError(err))
		}

		u = NewUser()
		u.SetLink(cred.Provider, cred.Link())
		err = r.store.Create(ctx, u)
		if err == nil {
			return &Resolution{User: u, Outcome: OutcomeCreated}, nil
		}
		if errors.Is(err, ErrDuplicate) && attempt == 0 {
			r.logger.DebugContext(ctx, "concurrent account creation, retrying lookup",
				logger.Component("resolver"),
				logger.Provider(cred.Provider),
			)
			continue
		}
		return nil, fmt.Errorf("failed to create %s account: %w", cred.Provider, storageError(err))
	}
}

func (r *Resolver) existing(ctx context.Context, u *User, cred Credential) (*Resolution, error) {
	l, _ := u.Link(cred.Provider)

	outcome := OutcomeRelinked
	if l.Attached() {
		if !r.refreshOnLogin || l.Token == cred.Token {
			return &Resolution{User: u, Outcome: OutcomeExisting}, nil
		}
		outcome = OutcomeRefreshed
	}

	u.SetLink(cred.Provider, cred.Link())
	if err := r.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update %s account: %w", cred.Provider, storageError(err))
	}
	return &Resolution{User: u, Outcome: outcome}, nil
}

func (r *Resolver) loadPrincipal(ctx context.Context, userID string) (*User, error) {
	u, err := r.store.FindByID(ctx, userID)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrPrincipalNotFound
	}
	return nil, fmt.Errorf("failed to load user: %w", storageError(err))
}
