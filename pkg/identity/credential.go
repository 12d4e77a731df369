package identity

import (
	"errors"
	"fmt"
)

// Profile holds the best-effort profile fields reported by a provider.
type Profile struct {
	DisplayName string
	Email       string
	Username    string
}

// Credential is the normalized result of a provider callback. It is built by
// a provider adapter, consumed once by Resolver.Resolve and then discarded.
type Credential struct {
	Provider   string
	ProviderID string
	Token      string
	Profile    Profile
}

// Validate checks that the credential names a federated provider and carries
// a subject id and a token. A link without a token cannot authenticate, so a
// tokenless credential would create or leave behind an account with no way in.
func (c Credential) Validate() error {
	if !IsFederated(c.Provider) {
		return errors.Join(ErrInvalidCredential, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider))
	}
	if c.ProviderID == "" {
		return errors.Join(ErrInvalidCredential, errors.New("missing provider id"))
	}
	if c.Token == "" {
		return errors.Join(ErrInvalidCredential, errors.New("missing token"))
	}
	return nil
}

// Link converts the credential to the link stored on a user.
func (c Credential) Link() ProviderLink {
	return ProviderLink{
		ProviderID:  c.ProviderID,
		Token:       c.Token,
		DisplayName: c.Profile.DisplayName,
		Email:       c.Profile.Email,
		Username:    c.Profile.Username,
	}
}
