package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "user_providers_provider_id_key"}

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		assert.True(t, IsDuplicateKeyError(dup))
		assert.True(t, IsDuplicateKeyError(fmt.Errorf("insert: %w", dup)))
		assert.False(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
		assert.False(t, IsDuplicateKeyError(nil))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		assert.True(t, IsNotFoundError(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
		assert.False(t, IsNotFoundError(errors.New("boom")))
		assert.False(t, IsNotFoundError(nil))
	})

	t.Run("write errors", func(t *testing.T) {
		t.Parallel()
		err := mapWriteError(dup)
		assert.ErrorIs(t, err, identity.ErrDuplicate)
		assert.NotErrorIs(t, err, identity.ErrStorage)

		err = mapWriteError(errors.New("connection reset"))
		assert.ErrorIs(t, err, identity.ErrStorage)
		assert.NotErrorIs(t, err, identity.ErrDuplicate)
	})
}

func TestLocalColumns(t *testing.T) {
	t.Parallel()

	email, hash := localColumns(identity.NewUser())
	assert.Nil(t, email)
	assert.Nil(t, hash)

	u := &identity.User{Local: &identity.LocalCredential{Email: "ada@example.com", PasswordHash: "h"}}
	email, hash = localColumns(u)
	require.NotNil(t, email)
	require.NotNil(t, hash)
	assert.Equal(t, "ada@example.com", *email)
	assert.Equal(t, "h", *hash)
}

func TestStore_MalformedID(t *testing.T) {
	t.Parallel()

	s := New(nil)
	ctx := context.Background()

	_, err := s.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, &identity.User{ID: "not-a-uuid"}), identity.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "not-a-uuid"), identity.ErrNotFound)
}

func TestMigrate_UnknownCommand(t *testing.T) {
	t.Parallel()

	err := Migrate(context.Background(), nil, Config{}, slog.Default(), "sideways")
	assert.ErrorIs(t, err, ErrUnknownMigrationCommand)
}

func TestMigrations_Embedded(t *testing.T) {
	t.Parallel()

	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	raw, err := migrations.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "-- +goose Up")
	assert.Contains(t, string(raw), "-- +goose Down")
}

// TestStore_Postgres runs against a live server when PG_TEST_URL is set.
func TestStore_Postgres(t *testing.T) {
	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx := context.Background()
	cfg := Config{
		ConnectionString:  url,
		MaxOpenConns:      4,
		MaxIdleConns:      1,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Minute,
		RetryAttempts:     1,
		MigrationsTable:   "fedauth_test_migrations",
	}
	pool, err := Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Healthcheck(pool)(ctx))

	log := slog.Default()
	require.NoError(t, Migrate(ctx, pool, cfg, log, MigrateReset))
	require.NoError(t, Migrate(ctx, pool, cfg, log, MigrateUp))
	t.Cleanup(func() { _ = Migrate(context.Background(), pool, cfg, log, MigrateReset) })

	s := New(pool)

	u := identity.NewUser()
	u.SetLink(identity.ProviderGoogle, identity.ProviderLink{ProviderID: "g-1", Token: "t1", DisplayName: "Ada"})
	require.NoError(t, s.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := s.FindByProvider(ctx, identity.ProviderGoogle, "g-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Providers, got.Providers)
	assert.Nil(t, got.Local)

	dup := identity.NewUser()
	dup.SetLink(identity.ProviderGoogle, identity.ProviderLink{ProviderID: "g-1", Token: "t2"})
	assert.ErrorIs(t, s.Create(ctx, dup), identity.ErrDuplicate)
	assert.Empty(t, dup.ID, "failed create must not assign an id")

	// the failed transaction left nothing behind
	_, err = s.FindByProvider(ctx, identity.ProviderGoogle, "missing")
	assert.ErrorIs(t, err, identity.ErrNotFound)

	other := identity.NewUser()
	other.SetLink(identity.ProviderFacebook, identity.ProviderLink{ProviderID: "fb-1", Token: "t"})
	require.NoError(t, s.Create(ctx, other))

	got.Local = &identity.LocalCredential{Email: "ada@example.com", PasswordHash: "h"}
	got.SetLink(identity.ProviderGoogle, identity.ProviderLink{ProviderID: "g-1"})
	require.NoError(t, s.Save(ctx, got))

	byEmail, err := s.FindByLocalEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.True(t, byEmail.CreatedAt.Equal(u.CreatedAt))
	link, ok := byEmail.Link(identity.ProviderGoogle)
	require.True(t, ok)
	assert.False(t, link.Attached())
	assert.Equal(t, "g-1", link.ProviderID)

	other.Local = &identity.LocalCredential{Email: "ada@example.com", PasswordHash: "h"}
	assert.ErrorIs(t, s.Save(ctx, other), identity.ErrDuplicate)

	missing := identity.NewUser()
	missing.ID = "00000000-0000-0000-0000-000000000000"
	assert.ErrorIs(t, s.Save(ctx, missing), identity.ErrNotFound)
	_, err = s.FindByID(ctx, missing.ID)
	assert.ErrorIs(t, err, identity.ErrNotFound)

	require.NoError(t, s.Delete(ctx, other.ID))
	assert.ErrorIs(t, s.Delete(ctx, other.ID), identity.ErrNotFound)
	_, err = s.FindByProvider(ctx, identity.ProviderFacebook, "fb-1")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}
