package identity

import (
	"slices"
	"time"
)

// Provider names. The set is fixed; every stored link is keyed by one of the
// federated names below.
const (
	ProviderLocal            = "local"
	ProviderFacebook         = "facebook"
	ProviderTwitter          = "twitter"
	ProviderGoogle           = "google"
	ProviderOpenIDGoogle     = "openidgoogle"
	ProviderOpenIDHeroku     = "openidheroku"
	ProviderOpenIDOpeni      = "openidopeni"
	ProviderOpenIDLocalOpeni = "openidlocalopeni"
)

var federatedProviders = []string{
	ProviderFacebook,
	ProviderTwitter,
	ProviderGoogle,
	ProviderOpenIDGoogle,
	ProviderOpenIDHeroku,
	ProviderOpenIDOpeni,
	ProviderOpenIDLocalOpeni,
}

// FederatedProviders returns the names of all non-local providers.
func FederatedProviders() []string {
	return slices.Clone(federatedProviders)
}

// IsFederated reports whether name is a known federated provider.
func IsFederated(name string) bool {
	return slices.Contains(federatedProviders, name)
}

// IsKnownProvider reports whether name is local or a federated provider.
func IsKnownProvider(name string) bool {
	return name == ProviderLocal || IsFederated(name)
}

// LocalCredential is the email and password hash pair of a local account.
type LocalCredential struct {
	Email        string
	PasswordHash string
}

// ProviderLink is a stored federated credential. An empty Token marks a link
// that was detached by the user; the ProviderID is kept so the next login
// re-attaches the same account.
type ProviderLink struct {
	ProviderID  string
	Token       string
	DisplayName string
	Email       string
	Username    string
}

// Attached reports whether the link currently carries a token.
func (l ProviderLink) Attached() bool {
	return l.Token != ""
}

// User is a persisted account.
type User struct {
	ID        string
	Local     *LocalCredential
	Providers map[string]ProviderLink
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser returns an empty user ready to be passed to Store.Create.
func NewUser() *User {
	return &User{Providers: make(map[string]ProviderLink)}
}

// Link returns the stored link for provider.
func (u *User) Link(provider string) (ProviderLink, bool) {
	if u == nil || u.Providers == nil {
		return ProviderLink{}, false
	}
	l, ok := u.Providers[provider]
	return l, ok
}

// SetLink stores l under provider, replacing any previous link.
func (u *User) SetLink(provider string, l ProviderLink) {
	if u.Providers == nil {
		u.Providers = make(map[string]ProviderLink)
	}
	u.Providers[provider] = l
}

// HasCredential reports whether the user can still authenticate somehow:
// a local credential or at least one attached provider link.
func (u *User) HasCredential() bool {
	if u == nil {
		return false
	}
	if u.Local != nil {
		return true
	}
	for _, l := range u.Providers {
		if l.Attached() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Local != nil {
		local := *u.Local
		c.Local = &local
	}
	c.Providers = make(map[string]ProviderLink, len(u.Providers))
	for k, v := range u.Providers {
		c.Providers[k] = v
	}
	return &c
}
