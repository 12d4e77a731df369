// Package mongostore stores users in MongoDB, one document per user with
// federated links embedded by provider name.
//
//	client, err := mongostore.Connect(ctx, cfg)
//	store := mongostore.New(client.Database(cfg.Database).Collection(cfg.Collection))
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
// Unique sparse indexes on local.email and on providers.<name>.id enforce
// the identity.Store uniqueness contract; violations surface as
// identity.ErrDuplicate.
package mongostore
