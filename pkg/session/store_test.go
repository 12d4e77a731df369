package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fedauth/pkg/session"
)

func newStoredSession(token string, ttl time.Duration) *session.Session {
	now := time.Now()
	return &session.Session{
		Token:          token,
		Principal:      "user-1",
		Data:           map[string]string{"k": "v"},
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Run("create and get", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Create(ctx, newStoredSession("tok", time.Hour)))
		got, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.Principal)
		assert.Equal(t, "v", got.Data["k"])

		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("create expired", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		err := s.Create(context.Background(), newStoredSession("tok", -time.Second))
		assert.ErrorIs(t, err, session.ErrSessionExpired)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := context.Background()

		sess := newStoredSession("tok", time.Hour)
		assert.ErrorIs(t, s.Update(ctx, sess), session.ErrSessionNotFound)

		require.NoError(t, s.Create(ctx, sess))
		sess.SetValue("k", "changed")
		require.NoError(t, s.Update(ctx, sess))

		got, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "changed", got.Data["k"])
	})

	t.Run("returned sessions are copies", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := context.Background()

		sess := newStoredSession("tok", time.Hour)
		require.NoError(t, s.Create(ctx, sess))
		sess.SetValue("k", "local")

		got, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		got.SetValue("k", "also local")

		again, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "v", again.Data["k"])
	})

	t.Run("touch", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Create(ctx, newStoredSession("tok", time.Hour)))
		at := time.Now().Add(time.Minute).Truncate(time.Second)
		exp := at.Add(2 * time.Hour)
		require.NoError(t, s.Touch(ctx, "tok", at, exp))

		got, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, got.LastActivityAt.Equal(at))
		assert.True(t, got.ExpiresAt.Equal(exp))
		assert.Equal(t, "v", got.Data["k"])

		assert.ErrorIs(t, s.Touch(ctx, "missing", at, exp), session.ErrSessionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Create(ctx, newStoredSession("tok", time.Hour)))
		require.NoError(t, s.Delete(ctx, "tok"))
		_, err := s.Get(ctx, "tok")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
		require.NoError(t, s.Delete(ctx, "tok"))
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	testStore(t, func(t *testing.T) session.Store {
		return session.NewMemoryStore(time.Minute)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()
		s := session.NewMemoryStore(0)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, newStoredSession("tok", 20*time.Millisecond)))

		assert.Eventually(t, func() bool {
			_, err := s.Get(ctx, "tok")
			return err != nil
		}, time.Second, 10*time.Millisecond)
	})
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	testStore(t, func(t *testing.T) session.Store {
		_, client := newMiniredis(t)
		return session.NewRedisStore(client, "")
	})

	t.Run("ttl follows expiry", func(t *testing.T) {
		t.Parallel()
		mr, client := newMiniredis(t)
		s := session.NewRedisStore(client, "test:")
		ctx := context.Background()

		require.NoError(t, s.Create(ctx, newStoredSession("tok", time.Hour)))
		require.True(t, mr.Exists("test:tok"))
		ttl := mr.TTL("test:tok")
		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)

		mr.FastForward(2 * time.Hour)
		_, err := s.Get(ctx, "tok")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("backend failure", func(t *testing.T) {
		t.Parallel()
		mr, client := newMiniredis(t)
		s := session.NewRedisStore(client, "")
		mr.Close()

		_, err := s.Get(context.Background(), "tok")
		assert.ErrorIs(t, err, session.ErrStore)
	})
}

func TestConnectRedis(t *testing.T) {
	t.Parallel()

	t.Run("connects", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		client, err := session.ConnectRedis(context.Background(), session.RedisConfig{
			ConnectionURL:  "redis://" + mr.Addr() + "/0",
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		defer client.Close()

		require.NoError(t, session.RedisHealthcheck(client)(context.Background()))
		mr.Close()
		assert.ErrorIs(t, session.RedisHealthcheck(client)(context.Background()), session.ErrHealthcheckFailed)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		_, err := session.ConnectRedis(context.Background(), session.RedisConfig{ConnectionURL: "http://nope", ConnectTimeout: time.Second})
		assert.ErrorIs(t, err, session.ErrFailedToParseRedisURL)
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := session.ConnectRedis(context.Background(), session.RedisConfig{
			ConnectionURL:  "redis://" + addr + "/0",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, session.ErrRedisNotReady)
	})
}
