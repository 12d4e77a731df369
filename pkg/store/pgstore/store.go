package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is an identity.Store on PostgreSQL. Users live in the users table,
// federated links in user_providers; both uniqueness constraints are
// enforced by the schema.
type Store struct {
	db  DB
	now func() time.Time
}

var _ identity.Store = (*Store)(nil)

// New returns a store on db. The schema must be migrated with Migrate.
func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

const (
	selectUser = `SELECT id::text, local_email, local_password_hash, created_at, updated_at FROM users`

	selectLinks = `SELECT provider, provider_id, token, display_name, email, username
		FROM user_providers WHERE user_id = $1`

	insertUser = `INSERT INTO users (id, local_email, local_password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	updateUser = `UPDATE users SET local_email = $2, local_password_hash = $3, updated_at = $4
		WHERE id = $1`

	deleteLinks = `DELETE FROM user_providers WHERE user_id = $1`

	insertLink = `INSERT INTO user_providers (user_id, provider, provider_id, token, display_name, email, username)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

func (s *Store) FindByID(ctx context.Context, id string) (*identity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, identity.ErrNotFound
	}
	return s.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (s *Store) FindByProvider(ctx context.Context, provider, providerID string) (*identity.User, error) {
	return s.findOne(ctx, selectUser+` WHERE id = (
		SELECT user_id FROM user_providers WHERE provider = $1 AND provider_id = $2)`, provider, providerID)
}

func (s *Store) FindByLocalEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.findOne(ctx, selectUser+` WHERE local_email = $1`, email)
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (*identity.User, error) {
	var (
		u     identity.User
		email *string
		hash  *string
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(&u.ID, &email, &hash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, identity.ErrNotFound
		}
		return nil, errors.Join(identity.ErrStorage, err)
	}
	if email != nil && hash != nil {
		u.Local = &identity.LocalCredential{Email: *email, PasswordHash: *hash}
	}

	rows, err := s.db.Query(ctx, selectLinks, u.ID)
	if err != nil {
		return nil, errors.Join(identity.ErrStorage, err)
	}
	u.Providers = make(map[string]identity.ProviderLink)
	var (
		provider string
		l        identity.ProviderLink
	)
	_, err = pgx.ForEachRow(rows, []any{&provider, &l.ProviderID, &l.Token, &l.DisplayName, &l.Email, &l.Username}, func() error {
		u.Providers[provider] = l
		return nil
	})
	if err != nil {
		return nil, errors.Join(identity.ErrStorage, err)
	}
	return &u, nil
}

func (s *Store) Create(ctx context.Context, u *identity.User) error {
	id := uuid.NewString()
	now := s.now().UTC().Truncate(time.Microsecond)
	email, hash := localColumns(u)

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertUser, id, email, hash, now, now); err != nil {
			return err
		}
		return insertLinks(ctx, tx, id, u.Providers)
	})
	if err != nil {
		return mapWriteError(err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Providers == nil {
		u.Providers = make(map[string]identity.ProviderLink)
	}
	return nil
}

// Save rewrites the local credential and replaces the link rows of u in one
// transaction.
func (s *Store) Save(ctx context.Context, u *identity.User) error {
	if _, err := uuid.Parse(u.ID); err != nil {
		return identity.ErrNotFound
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	email, hash := localColumns(u)

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateUser, u.ID, email, hash, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return identity.ErrNotFound
		}
		if _, err := tx.Exec(ctx, deleteLinks, u.ID); err != nil {
			return err
		}
		return insertLinks(ctx, tx, u.ID, u.Providers)
	})
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.ErrNotFound
		}
		return mapWriteError(err)
	}
	u.UpdatedAt = now
	return nil
}

// Delete removes a user and its links. It is not part of identity.Store and
// exists for administrative tooling.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return identity.ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Join(identity.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func insertLinks(ctx context.Context, tx pgx.Tx, userID string, links map[string]identity.ProviderLink) error {
	if len(links) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for provider, l := range links {
		batch.Queue(insertLink, userID, provider, l.ProviderID, l.Token, l.DisplayName, l.Email, l.Username)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func localColumns(u *identity.User) (email, hash *string) {
	if u.Local == nil {
		return nil, nil
	}
	return &u.Local.Email, &u.Local.PasswordHash
}

func mapWriteError(err error) error {
	if IsDuplicateKeyError(err) {
		return errors.Join(identity.ErrDuplicate, err)
	}
	return errors.Join(identity.ErrStorage, err)
}
