package provider

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

type googleAdapter struct {
	oauth2Flow
}

// NewGoogle returns the google adapter.
func NewGoogle(cfg Config, opts ...Option) Adapter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newGoogle(cfg.WithDefaults(identity.ProviderGoogle, o.baseURL), o)
}

func newGoogle(cfg Config, o *options) Adapter {
	endpoint := google.Endpoint
	if cfg.AuthorizationURL != "" {
		endpoint.AuthURL = cfg.AuthorizationURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = googleUserInfoURL
	}

	return &googleAdapter{oauth2Flow{
		name: identity.ProviderGoogle,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfo,
		httpClient:  o.httpClient,
		logger:      o.logger,
	}}
}

func (a *googleAdapter) Exchange(ctx context.Context, params url.Values) (identity.Credential, error) {
	tok, err := a.exchange(ctx, params)
	if err != nil {
		return identity.Credential{}, err
	}
	var u googleUser
	if err := a.fetchProfile(ctx, tok, &u); err != nil {
		return identity.Credential{}, err
	}
	return mapGoogleUser(u, tok.AccessToken)
}

func mapGoogleUser(u googleUser, token string) (identity.Credential, error) {
	if u.ID == "" {
		return identity.Credential{}, ErrMissingSubject
	}
	return identity.Credential{
		Provider:   identity.ProviderGoogle,
		ProviderID: u.ID,
		Token:      token,
		Profile: identity.Profile{
			DisplayName: normalizeName(u.Name),
			Email:       u.Email,
		},
	}, nil
}
