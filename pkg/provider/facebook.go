package provider

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

const facebookUserInfoURL = "https://graph.facebook.com/v19.0/me?fields=id,name,first_name,last_name,email"

type facebookUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type facebookAdapter struct {
	oauth2Flow
}

// NewFacebook returns the facebook adapter.
func NewFacebook(cfg Config, opts ...Option) Adapter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newFacebook(cfg.WithDefaults(identity.ProviderFacebook, o.baseURL), o)
}

func newFacebook(cfg Config, o *options) Adapter {
	endpoint := facebook.Endpoint
	if cfg.AuthorizationURL != "" {
		endpoint.AuthURL = cfg.AuthorizationURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"email"}
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = facebookUserInfoURL
	}

	return &facebookAdapter{oauth2Flow{
		name: identity.ProviderFacebook,
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

func (a *facebookAdapter) Exchange(ctx context.Context, params url.Values) (identity.Credential, error) {
	tok, err := a.exchange(ctx, params)
	if err != nil {
		return identity.Credential{}, err
	}
	var u facebookUser
	if err := a.fetchProfile(ctx, tok, &u); err != nil {
		return identity.Credential{}, err
	}
	return mapFacebookUser(u, tok.AccessToken)
}

// mapFacebookUser builds the display name from given and family name,
// falling back to the full name field.
func mapFacebookUser(u facebookUser, token string) (identity.Credential, error) {
	if u.ID == "" {
		return identity.Credential{}, ErrMissingSubject
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Name
	}
	return identity.Credential{
		Provider:   identity.ProviderFacebook,
		ProviderID: u.ID,
		Token:      token,
		Profile: identity.Profile{
			DisplayName: normalizeName(name),
			Email:       u.Email,
		},
	}, nil
}
