package provider

import (
	"context"
	"net/url"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// Adapter runs one provider's handshake and normalizes its profile.
type Adapter interface {
	// Name returns the provider name the adapter serves.
	Name() string

	// AuthURL returns the URL the user agent is redirected to. state must be
	// echoed back on the callback.
	AuthURL(ctx context.Context, state string) (string, error)

	// Exchange completes the handshake using the callback query parameters
	// and returns the normalized credential.
	Exchange(ctx context.Context, params url.Values) (identity.Credential, error)
}
