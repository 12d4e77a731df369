package app

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/fedauth/pkg/store/pgstore"
)

// Migrate runs a schema migration command against the postgres user store.
func Migrate(ctx context.Context, cfg Config, log *slog.Logger, command string) error {
	if cfg.UserStore != UserStorePostgres {
		return ErrMigrateNotNeeded
	}
	pool, err := pgstore.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	log.InfoContext(ctx, "running migrations", slog.String("command", command))
	return pgstore.Migrate(ctx, pool, cfg.Postgres, log, command)
}
