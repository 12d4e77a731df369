// Package pgstore stores users in PostgreSQL using pgx.
//
// The schema ships with the package as goose migrations:
//
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err := pgstore.Migrate(ctx, pool, cfg, log, pgstore.MigrateUp); err != nil {
//		return err
//	}
//	store := pgstore.New(pool)
//
// A unique index on users.local_email and a unique constraint on
// user_providers (provider, provider_id) enforce the identity.Store contract;
// violations surface as identity.ErrDuplicate.
package pgstore
