package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/dghubble/oauth1/twitter"
	gocache "github.com/patrickmn/go-cache"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

const twitterVerifyURL = "https://api.twitter.com/1.1/account/verify_credentials.json?include_email=true"

type twitterUser struct {
	IDStr      string `json:"id_str"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Email      string `json:"email"`
}

// twitterAdapter runs the OAuth1 three-legged flow. OAuth1 has no state
// parameter, so the state is appended to the callback URL. The request token
// secret is kept in the FlowStore carried by the context, or in memory when
// there is none, until the user returns.
type twitterAdapter struct {
	conf       *oauth1.Config
	verifyURL  string
	secrets    *gocache.Cache
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwitter returns the twitter adapter.
func NewTwitter(cfg Config, opts ...Option) Adapter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newTwitter(cfg.WithDefaults(identity.ProviderTwitter, o.baseURL), o)
}

func newTwitter(cfg Config, o *options) Adapter {
	endpoint := twitter.AuthenticateEndpoint
	if cfg.RequestTokenURL != "" {
		endpoint.RequestTokenURL = cfg.RequestTokenURL
	}
	if cfg.AuthorizationURL != "" {
		endpoint.AuthorizeURL = cfg.AuthorizationURL
	}
	if cfg.TokenURL != "" {
		endpoint.AccessTokenURL = cfg.TokenURL
	}
	verify := cfg.UserInfoURL
	if verify == "" {
		verify = twitterVerifyURL
	}

	return &twitterAdapter{
		conf: &oauth1.Config{
			ConsumerKey:    cfg.ClientID,
			ConsumerSecret: cfg.ClientSecret,
			CallbackURL:    cfg.CallbackURL,
			Endpoint:       endpoint,
			HTTPClient:     o.httpClient,
		},
		verifyURL:  verify,
		secrets:    gocache.New(o.requestSecretTTL, time.Minute),
		httpClient: o.httpClient,
		logger:     o.logger,
	}
}

func (a *twitterAdapter) Name() string { return identity.ProviderTwitter }

func (a *twitterAdapter) AuthURL(ctx context.Context, state string) (string, error) {
	conf := *a.conf
	callback, err := url.Parse(conf.CallbackURL)
	if err != nil {
		return "", errors.Join(ErrInvalidConfig, err)
	}
	q := callback.Query()
	q.Set("state", state)
	callback.RawQuery = q.Encode()
	conf.CallbackURL = callback.String()

	requestToken, requestSecret, err := conf.RequestToken()
	if err != nil {
		return "", fmt.Errorf("failed to obtain twitter request token: %w", err)
	}
	if err := a.putSecret(ctx, requestToken, requestSecret); err != nil {
		return "", err
	}

	authURL, err := conf.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("failed to build twitter authorization url: %w", err)
	}
	a.logger.DebugContext(ctx, "twitter request token issued", logger.Provider(identity.ProviderTwitter))
	return authURL.String(), nil
}

func (a *twitterAdapter) Exchange(ctx context.Context, params url.Values) (identity.Credential, error) {
	if params.Has("denied") {
		return identity.Credential{}, ErrAccessDenied
	}
	requestToken := params.Get("oauth_token")
	verifier := params.Get("oauth_verifier")
	if requestToken == "" || verifier == "" {
		return identity.Credential{}, ErrMissingCode
	}

	requestSecret, ok, err := a.takeSecret(ctx, requestToken)
	if err != nil {
		return identity.Credential{}, err
	}
	if !ok {
		return identity.Credential{}, ErrRequestTokenExpired
	}

	accessToken, accessSecret, err := a.conf.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return identity.Credential{}, errors.Join(ErrExchangeFailed, err)
	}

	ctx = context.WithValue(ctx, oauth1.HTTPClient, a.httpClient)
	client := a.conf.Client(ctx, oauth1.NewToken(accessToken, accessSecret))

	var u twitterUser
	if err := getJSON(ctx, client, a.verifyURL, &u); err != nil {
		return identity.Credential{}, err
	}
	return mapTwitterUser(u, accessToken)
}

func secretKey(requestToken string) string {
	return "twitter_request_secret:" + requestToken
}

func (a *twitterAdapter) putSecret(ctx context.Context, requestToken, secret string) error {
	if fs, ok := FlowStoreFromContext(ctx); ok {
		if err := fs.Put(ctx, secretKey(requestToken), secret); err != nil {
			return fmt.Errorf("failed to store twitter request secret: %w", err)
		}
		return nil
	}
	a.secrets.SetDefault(requestToken, secret)
	return nil
}

func (a *twitterAdapter) takeSecret(ctx context.Context, requestToken string) (string, bool, error) {
	if fs, ok := FlowStoreFromContext(ctx); ok {
		secret, found, err := fs.Take(ctx, secretKey(requestToken))
		if err != nil {
			return "", false, fmt.Errorf("failed to load twitter request secret: %w", err)
		}
		return secret, found, nil
	}
	v, found := a.secrets.Get(requestToken)
	if !found {
		return "", false, nil
	}
	a.secrets.Delete(requestToken)
	secret, _ := v.(string)
	return secret, true, nil
}

// mapTwitterUser keeps the screen name as the link's username.
func mapTwitterUser(u twitterUser, token string) (identity.Credential, error) {
	if u.IDStr == "" {
		return identity.Credential{}, ErrMissingSubject
	}
	return identity.Credential{
		Provider:   identity.ProviderTwitter,
		ProviderID: u.IDStr,
		Token:      token,
		Profile: identity.Profile{
			DisplayName: normalizeName(u.Name),
			Email:       u.Email,
			Username:    u.ScreenName,
		},
	}, nil
}
