package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

func googleCred(id, token string) identity.Credential {
	return identity.Credential{
		Provider:   identity.ProviderGoogle,
		ProviderID: id,
		Token:      token,
		Profile: identity.Profile{
			DisplayName: "Jane Doe",
			Email:       "jane@example.com",
		},
	}
}

func TestResolver_Resolve_Anonymous(t *testing.T) {
	t.Parallel()

	t.Run("creates account for unseen identity", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		obs := &recordingObserver{}
		r := identity.NewResolver(store, identity.WithObserver(obs))

		res, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		assert.Equal(t, identity.OutcomeCreated, res.Outcome)
		assert.NotEmpty(t, res.User.ID)
		assert.Nil(t, res.User.Local)
		require.Len(t, res.User.Providers, 1)

		link, ok := res.User.Link(identity.ProviderGoogle)
		require.True(t, ok)
		assert.Equal(t, "g1", link.ProviderID)
		assert.Equal(t, "t1", link.Token)
		assert.Equal(t, "Jane Doe", link.DisplayName)
		assert.Equal(t, "jane@example.com", link.Email)
		assert.Equal(t, 1, store.Len())

		require.Len(t, obs.resolves, 1)
		assert.Equal(t, identity.ProviderGoogle, obs.resolves[0].provider)
		assert.Equal(t, identity.OutcomeCreated, obs.resolves[0].outcome)
		assert.NoError(t, obs.resolves[0].err)
	})

	t.Run("returns the same account on repeated login", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		r := identity.NewResolver(store)
		ctx := context.Background()

		first, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		second, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		assert.Equal(t, first.User.ID, second.User.ID)
		assert.Equal(t, identity.OutcomeExisting, second.Outcome)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("keeps the most recent token", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		r := identity.NewResolver(store)
		ctx := context.Background()

		for _, token := range []string{"t1", "t2", "t3"} {
			_, err := r.Resolve(ctx, googleCred("g1", token), identity.Anonymous())
			require.NoError(t, err)
		}

		u, err := store.FindByProvider(ctx, identity.ProviderGoogle, "g1")
		require.NoError(t, err)
		assert.Equal(t, "t3", u.Providers[identity.ProviderGoogle].Token)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("pure login does not write", func(t *testing.T) {
		t.Parallel()

		existing := &identity.User{
			ID: "u1",
			Providers: map[string]identity.ProviderLink{
				identity.ProviderGoogle: {ProviderID: "g1", Token: "old"},
			},
		}
		store := &MockStore{}
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(existing, nil)

		r := identity.NewResolver(store, identity.WithRefreshOnLogin(false))
		res, err := r.Resolve(context.Background(), googleCred("g1", "new"), identity.Anonymous())
		require.NoError(t, err)

		assert.Equal(t, identity.OutcomeExisting, res.Outcome)
		assert.Equal(t, "old", res.User.Providers[identity.ProviderGoogle].Token)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("re-attaches a detached link", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		r := identity.NewResolver(store)
		ctx := context.Background()

		created, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		_, err = r.Unlink(ctx, identity.Authenticated(created.User.ID), identity.ProviderGoogle)
		require.NoError(t, err)

		res, err := r.Resolve(ctx, googleCred("g1", "t2"), identity.Anonymous())
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeRelinked, res.Outcome)
		assert.Equal(t, created.User.ID, res.User.ID)

		stored, err := store.FindByID(ctx, created.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "t2", stored.Providers[identity.ProviderGoogle].Token)
	})

	t.Run("retries lookup once after duplicate create", func(t *testing.T) {
		t.Parallel()

		winner := &identity.User{
			ID: "u1",
			Providers: map[string]identity.ProviderLink{
				identity.ProviderGoogle: {ProviderID: "g1", Token: "t1"},
			},
		}
		store := &MockStore{}
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(nil, identity.ErrNotFound).Once()
		store.On("Create", mock.Anything, mock.Anything).Return(identity.ErrDuplicate).Once()
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(winner, nil).Once()

		r := identity.NewResolver(store)
		res, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		assert.Equal(t, "u1", res.User.ID)
		assert.Equal(t, identity.OutcomeExisting, res.Outcome)
		store.AssertExpectations(t)
	})

	t.Run("fails after second duplicate", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(nil, identity.ErrNotFound).Twice()
		store.On("Create", mock.Anything, mock.Anything).Return(identity.ErrDuplicate).Twice()

		r := identity.NewResolver(store)
		_, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())
		require.Error(t, err)

		assert.ErrorIs(t, err, identity.ErrStorage)
		assert.ErrorIs(t, err, identity.ErrDuplicate)
		store.AssertExpectations(t)
	})

	t.Run("surfaces lookup failure as storage error", func(t *testing.T) {
		t.Parallel()

		dbErr := errors.New("connection refused")
		store := &MockStore{}
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(nil, dbErr)

		obs := &recordingObserver{}
		r := identity.NewResolver(store, identity.WithObserver(obs))
		_, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())

		assert.ErrorIs(t, err, identity.ErrStorage)
		assert.ErrorIs(t, err, dbErr)
		require.Len(t, obs.resolves, 1)
		assert.Error(t, obs.resolves[0].err)
	})

	t.Run("surfaces save failure of relink", func(t *testing.T) {
		t.Parallel()

		detached := &identity.User{
			ID: "u1",
			Providers: map[string]identity.ProviderLink{
				identity.ProviderGoogle: {ProviderID: "g1"},
			},
		}
		store := &MockStore{}
		store.On("FindByProvider", mock.Anything, identity.ProviderGoogle, "g1").Return(detached, nil)
		store.On("Save", mock.Anything, mock.Anything).Return(errors.New("write failed"))

		r := identity.NewResolver(store)
		res, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())

		assert.Nil(t, res)
		assert.ErrorIs(t, err, identity.ErrStorage)
	})

	t.Run("rejects invalid credential", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(&MockStore{})

		_, err := r.Resolve(context.Background(), identity.Credential{Provider: "myspace", ProviderID: "x"}, identity.Anonymous())
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)
		assert.ErrorIs(t, err, identity.ErrUnknownProvider)

		_, err = r.Resolve(context.Background(), identity.Credential{Provider: identity.ProviderTwitter}, identity.Anonymous())
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)

		_, err = r.Resolve(context.Background(), identity.Credential{Provider: identity.ProviderLocal, ProviderID: "x"}, identity.Anonymous())
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)
	})

	t.Run("tokenless credential never creates or detaches an account", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		_, err := r.Resolve(ctx, googleCred("g1", ""), identity.Anonymous())
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)
		assert.Equal(t, 0, store.Len())

		created, err := r.Resolve(ctx, identity.Credential{Provider: identity.ProviderFacebook, ProviderID: "f1", Token: "t1"}, identity.Anonymous())
		require.NoError(t, err)

		_, err = r.Resolve(ctx, identity.Credential{Provider: identity.ProviderFacebook, ProviderID: "f1"}, identity.Anonymous())
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)

		stored, err := store.FindByID(ctx, created.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "t1", stored.Providers[identity.ProviderFacebook].Token)
		assert.True(t, stored.HasCredential())
	})

	t.Run("concurrent callbacks create one account", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		r := identity.NewResolver(store)

		const n = 16
		ids := make([]string, n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Anonymous())
				errs[i] = err
				if err == nil {
					ids[i] = res.User.ID
				}
			}()
		}
		wg.Wait()

		for i := range n {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}
		assert.Equal(t, 1, store.Len())
	})
}

func TestResolver_Resolve_Authenticated(t *testing.T) {
	t.Parallel()

	t.Run("links a new provider to the signed-in account", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		local := identity.NewLocalStrategy(store, identity.WithHasher(identity.NewBcryptHasher(4)))

		u, err := local.Signup(ctx, identity.Anonymous(), "a@x.com", "pw1")
		require.NoError(t, err)

		r := identity.NewResolver(store)
		res, err := r.Resolve(ctx, identity.Credential{
			Provider:   identity.ProviderFacebook,
			ProviderID: "f1",
			Token:      "ft",
			Profile:    identity.Profile{DisplayName: "A X"},
		}, identity.Authenticated(u.ID))
		require.NoError(t, err)

		assert.Equal(t, identity.OutcomeLinked, res.Outcome)
		assert.Equal(t, u.ID, res.User.ID)

		stored, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Local)
		assert.Equal(t, u.Local, stored.Local)
		require.Len(t, stored.Providers, 1)
		assert.Equal(t, "f1", stored.Providers[identity.ProviderFacebook].ProviderID)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("linking is additive", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		created, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		res, err := r.Resolve(ctx, identity.Credential{
			Provider:   identity.ProviderTwitter,
			ProviderID: "tw1",
			Token:      "tt",
			Profile:    identity.Profile{DisplayName: "Jane", Username: "jane"},
		}, identity.Authenticated(created.User.ID))
		require.NoError(t, err)

		require.Len(t, res.User.Providers, 2)
		assert.Equal(t, created.User.Providers[identity.ProviderGoogle], res.User.Providers[identity.ProviderGoogle])
		assert.Equal(t, "jane", res.User.Providers[identity.ProviderTwitter].Username)
		assert.Equal(t, created.User.Local, res.User.Local)
		assert.Equal(t, created.User.CreatedAt, res.User.CreatedAt)
	})

	t.Run("overwrites an existing link", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		created, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		res, err := r.Resolve(ctx, googleCred("g2", "t2"), identity.Authenticated(created.User.ID))
		require.NoError(t, err)

		assert.Equal(t, "g2", res.User.Providers[identity.ProviderGoogle].ProviderID)

		_, err = store.FindByProvider(ctx, identity.ProviderGoogle, "g1")
		assert.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("principal without account", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(identity.NewMemoryStore())
		_, err := r.Resolve(context.Background(), googleCred("g1", "t1"), identity.Authenticated("missing"))
		assert.ErrorIs(t, err, identity.ErrPrincipalNotFound)
	})

	t.Run("link held by another account is a storage error", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		_, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)
		other, err := r.Resolve(ctx, googleCred("g2", "t2"), identity.Anonymous())
		require.NoError(t, err)

		_, err = r.Resolve(ctx, googleCred("g1", "t3"), identity.Authenticated(other.User.ID))
		assert.ErrorIs(t, err, identity.ErrStorage)
		assert.ErrorIs(t, err, identity.ErrDuplicate)
	})
}

func TestResolver_Unlink(t *testing.T) {
	t.Parallel()

	t.Run("clears token and keeps provider id", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		created, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		u, err := r.Unlink(ctx, identity.Authenticated(created.User.ID), identity.ProviderGoogle)
		require.NoError(t, err)

		link := u.Providers[identity.ProviderGoogle]
		assert.Equal(t, "g1", link.ProviderID)
		assert.Empty(t, link.Token)
		assert.False(t, link.Attached())
	})

	t.Run("is a no-op for missing link", func(t *testing.T) {
		t.Parallel()

		store := identity.NewMemoryStore()
		ctx := context.Background()
		r := identity.NewResolver(store)

		created, err := r.Resolve(ctx, googleCred("g1", "t1"), identity.Anonymous())
		require.NoError(t, err)

		u, err := r.Unlink(ctx, identity.Authenticated(created.User.ID), identity.ProviderFacebook)
		require.NoError(t, err)
		assert.Len(t, u.Providers, 1)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(identity.NewMemoryStore())
		_, err := r.Unlink(context.Background(), identity.Anonymous(), identity.ProviderGoogle)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(identity.NewMemoryStore())
		_, err := r.Unlink(context.Background(), identity.Authenticated("u1"), "myspace")
		assert.ErrorIs(t, err, identity.ErrUnknownProvider)
	})
}
