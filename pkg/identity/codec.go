package identity

import (
	"context"
	"errors"
	"fmt"
)

// Codec converts between users and the value kept in a session. Only the user
// id is stored; the full record is fetched again on every Deserialize, so a
// session never serves stale account data.
type Codec struct {
	store Store
}

// NewCodec creates a codec reading users from store.
func NewCodec(store Store) *Codec {
	return &Codec{store: store}
}

// Serialize returns the session value for u.
func (c *Codec) Serialize(u *User) (string, error) {
	if u == nil || u.ID == "" {
		return "", errors.Join(ErrInvalidInput, errors.New("user has no id"))
	}
	return u.ID, nil
}

// Deserialize loads the user referenced by a session value. A user that no
// longer exists yields ErrPrincipalNotFound; callers must then treat the
// request as anonymous.
func (c *Codec) Deserialize(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrPrincipalNotFound
	}
	u, err := c.store.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load session user: %w", storageError(err))
	}
	return u, nil
}
