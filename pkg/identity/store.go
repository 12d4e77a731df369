package identity

import "context"

// Store persists users. Implementations must enforce uniqueness of
// (provider, provider id) and of the local email, rejecting violations on
// Create and Save with an error that matches ErrDuplicate. Lookups that miss
// return an error matching ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*User, error)
	FindByLocalEmail(ctx context.Context, email string) (*User, error)

	// Create assigns the user a fresh ID and stores it.
	Create(ctx context.Context, u *User) error

	// Save replaces the stored record with the same ID.
	Save(ctx context.Context, u *User) error
}
