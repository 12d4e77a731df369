package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/fedauth/pkg/httpserver"
	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/session"
	"github.com/dmitrymomot/fedauth/pkg/store/mongostore"
	"github.com/dmitrymomot/fedauth/pkg/store/pgstore"
)

// openUserStore connects the configured user store. Registered closers run
// on App.Close.
func (a *App) openUserStore(ctx context.Context, cfg Config) (identity.Store, error) {
	log := a.logger.With(logger.Component("store"), slog.String("backend", cfg.UserStore))

	switch cfg.UserStore {
	case UserStoreMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { return client.Disconnect(context.Background()) })
		a.checks["users"] = httpserver.Check(mongostore.Healthcheck(client))

		store := mongostore.New(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "user store connected")
		return store, nil

	case UserStorePostgres:
		pool, err := pgstore.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { pool.Close(); return nil })
		a.checks["users"] = httpserver.Check(pgstore.Healthcheck(pool))
		log.InfoContext(ctx, "user store connected")
		return pgstore.New(pool), nil

	case UserStoreMemory:
		log.WarnContext(ctx, "using in-memory user store, accounts are lost on restart")
		return identity.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%w: unknown USER_STORE %q", ErrInvalidConfig, cfg.UserStore)
}

// openSessionStore connects the configured session store.
func (a *App) openSessionStore(ctx context.Context, cfg Config) (session.Store, error) {
	switch cfg.Session.Store {
	case session.StoreRedis:
		client, err := session.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(client.Close)
		a.checks["sessions"] = httpserver.Check(session.RedisHealthcheck(client))
		return session.NewRedisStore(client, cfg.Redis.Prefix), nil

	case session.StoreMemory:
		return session.NewMemoryStore(cfg.Session.CleanupInterval), nil
	}
	return nil, fmt.Errorf("%w: unknown SESSION_STORE %q", ErrInvalidConfig, cfg.Session.Store)
}
