package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// oauth2Flow holds the authorization code flow shared by the OAuth2 and
// OpenID adapters.
type oauth2Flow struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

func (f *oauth2Flow) Name() string { return f.name }

func (f *oauth2Flow) AuthURL(_ context.Context, state string) (string, error) {
	if state == "" {
		return "", errors.New("state is required")
	}
	return f.conf.AuthCodeURL(state), nil
}

// exchange trades the callback code for a token.
func (f *oauth2Flow) exchange(ctx context.Context, params url.Values) (*oauth2.Token, error) {
	if e := params.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, e)
	}
	code := params.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrExchangeFailed, err)
	}
	return tok, nil
}

// fetchProfile GETs the user info endpoint with the token and decodes the
// JSON response into v.
func (f *oauth2Flow) fetchProfile(ctx context.Context, tok *oauth2.Token, v any) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	client := f.conf.Client(ctx, tok)
	return getJSON(ctx, client, f.userInfoURL, v)
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Join(ErrProfileFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrProfileFetch, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Join(ErrProfileFetch, fmt.Errorf("decode profile: %w", err))
	}
	return nil
}
