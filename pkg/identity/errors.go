package identity

import "errors"

// Store contract errors. Store implementations return these so the services
// can tell a miss or a uniqueness conflict apart from an infrastructure failure.
var (
	ErrNotFound  = errors.New("identity: record not found")
	ErrDuplicate = errors.New("identity: duplicate key")
)

// ErrStorage wraps every store failure that is not mapped to a domain error.
var ErrStorage = errors.New("identity: storage failure")

// Local credential errors, reported to the user.
var (
	ErrEmailTaken  = errors.New("identity: email already taken")
	ErrNoSuchUser  = errors.New("identity: no user found")
	ErrBadPassword = errors.New("identity: wrong password")
)

// Resolution and session errors.
var (
	ErrPrincipalNotFound = errors.New("identity: session user no longer exists")
	ErrInvalidCredential = errors.New("identity: invalid provider credential")
	ErrUnknownProvider   = errors.New("identity: unknown provider")
	ErrUnauthenticated   = errors.New("identity: authenticated principal required")
	ErrLastCredential    = errors.New("identity: cannot remove the last credential")
	ErrInvalidInput      = errors.New("identity: invalid input")
)

// storageError joins err with ErrStorage unless it already carries it.
func storageError(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return errors.Join(ErrStorage, err)
}
