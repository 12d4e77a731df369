package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// oauth2Server serves a token endpoint and a user info endpoint.
func oauth2Server(t *testing.T, token map[string]any, profile any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-code", r.PostForm.Get("code"))
		writeJSON(w, token)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token["access_token"].(string), r.Header.Get("Authorization"))
		writeJSON(w, profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth2Flow_AuthURL(t *testing.T) {
	t.Parallel()

	a := NewGoogle(Config{ClientID: "client", ClientSecret: "secret"})
	assert.Equal(t, identity.ProviderGoogle, a.Name())

	u, err := a.AuthURL(context.Background(), "state-123")
	require.NoError(t, err)
	assert.Contains(t, u, "accounts.google.com")
	assert.Contains(t, u, "client_id=client")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, url.QueryEscape("http://localhost:8080/auth/google/callback"))

	_, err = a.AuthURL(context.Background(), "")
	assert.Error(t, err)
}

func TestGoogleAdapter_Exchange(t *testing.T) {
	t.Parallel()

	srv := oauth2Server(t,
		map[string]any{"access_token": "google-token", "token_type": "Bearer"},
		map[string]any{"id": "g-1", "email": "ada@example.com", "verified_email": true, "name": "Ada Lovelace"},
	)

	a := NewGoogle(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	}, WithHTTPClient(srv.Client()))

	cred, err := a.Exchange(context.Background(), url.Values{"code": {"test-code"}, "state": {"s"}})
	require.NoError(t, err)
	assert.Equal(t, identity.Credential{
		Provider:   identity.ProviderGoogle,
		ProviderID: "g-1",
		Token:      "google-token",
		Profile:    identity.Profile{DisplayName: "Ada Lovelace", Email: "ada@example.com"},
	}, cred)
}

func TestFacebookAdapter_Exchange(t *testing.T) {
	t.Parallel()

	srv := oauth2Server(t,
		map[string]any{"access_token": "fb-token", "token_type": "Bearer"},
		map[string]any{"id": "fb-1", "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
	)

	a := NewFacebook(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	}, WithHTTPClient(srv.Client()))

	cred, err := a.Exchange(context.Background(), url.Values{"code": {"test-code"}})
	require.NoError(t, err)
	assert.Equal(t, "fb-1", cred.ProviderID)
	assert.Equal(t, "fb-token", cred.Token)
	assert.Equal(t, "Ada Lovelace", cred.Profile.DisplayName)
}

func TestOAuth2Flow_ExchangeErrors(t *testing.T) {
	t.Parallel()

	t.Run("user denied access", func(t *testing.T) {
		t.Parallel()
		a := NewGoogle(Config{ClientID: "client", ClientSecret: "secret"})
		_, err := a.Exchange(context.Background(), url.Values{"error": {"access_denied"}})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("missing code", func(t *testing.T) {
		t.Parallel()
		a := NewGoogle(Config{ClientID: "client", ClientSecret: "secret"})
		_, err := a.Exchange(context.Background(), url.Values{})
		assert.ErrorIs(t, err, ErrMissingCode)
	})

	t.Run("token endpoint rejects code", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		defer srv.Close()

		a := NewGoogle(Config{ClientID: "client", ClientSecret: "secret", TokenURL: srv.URL}, WithHTTPClient(srv.Client()))
		_, err := a.Exchange(context.Background(), url.Values{"code": {"bad"}})
		assert.ErrorIs(t, err, ErrExchangeFailed)
	})

	t.Run("profile endpoint fails", func(t *testing.T) {
		t.Parallel()
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"access_token": "t", "token_type": "Bearer"})
		})
		mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		a := NewGoogle(Config{
			ClientID:     "client",
			ClientSecret: "secret",
			TokenURL:     srv.URL + "/token",
			UserInfoURL:  srv.URL + "/userinfo",
		}, WithHTTPClient(srv.Client()))
		_, err := a.Exchange(context.Background(), url.Values{"code": {"c"}})
		assert.ErrorIs(t, err, ErrProfileFetch)
	})
}

func TestOpenIDAdapter_Exchange(t *testing.T) {
	t.Parallel()

	srv := oauth2Server(t,
		map[string]any{"access_token": "oid-token", "token_type": "Bearer", "id_token": signedIDToken(t, "subject-1")},
		map[string]any{"sub": "subject-1", "name": "Ada", "emails": []map[string]string{{"value": "ada@example.com"}}},
	)

	a, err := NewOpenID(identity.ProviderOpenIDLocalOpeni, Config{
		ClientID:         "client",
		ClientSecret:     "secret",
		AuthorizationURL: srv.URL + "/authorize",
		TokenURL:         srv.URL + "/token",
		UserInfoURL:      srv.URL + "/userinfo",
	}, WithHTTPClient(srv.Client()), WithBaseURL("https://auth.example.com"))
	require.NoError(t, err)
	assert.Equal(t, identity.ProviderOpenIDLocalOpeni, a.Name())

	u, err := a.AuthURL(context.Background(), "xyz")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, srv.URL+"/authorize?"))
	assert.Contains(t, u, "scope=openid+profile+email")
	assert.Contains(t, u, url.QueryEscape("https://auth.example.com/auth/openidlocalopeni/callback"))

	cred, err := a.Exchange(context.Background(), url.Values{"code": {"test-code"}})
	require.NoError(t, err)
	assert.Equal(t, identity.ProviderOpenIDLocalOpeni, cred.Provider)
	assert.Equal(t, "subject-1", cred.ProviderID)
	assert.Equal(t, "oid-token", cred.Token)
	assert.Equal(t, "ada@example.com", cred.Profile.Email)
}

func TestNewOpenID_RejectsOtherProviders(t *testing.T) {
	t.Parallel()

	_, err := NewOpenID(identity.ProviderGoogle, Config{ClientID: "c", ClientSecret: "s"})
	assert.ErrorIs(t, err, identity.ErrUnknownProvider)
}

type mapFlowStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *mapFlowStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

func (s *mapFlowStore) Take(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	delete(s.values, key)
	return v, ok, nil
}

func newTwitterServer(t *testing.T) (*httptest.Server, chan string) {
	t.Helper()

	callbacks := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		callbacks <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=rt&oauth_token_secret=rs&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="rt"`)
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=at&oauth_token_secret=as"))
	})
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="at"`)
		writeJSON(w, map[string]any{"id_str": "tw-1", "name": "Ada", "screen_name": "ada_l"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, callbacks
}

func newTestTwitter(srv *httptest.Server) Adapter {
	return NewTwitter(Config{
		ClientID:         "consumer",
		ClientSecret:     "consumer-secret",
		RequestTokenURL:  srv.URL + "/request_token",
		AuthorizationURL: srv.URL + "/authorize",
		TokenURL:         srv.URL + "/access_token",
		UserInfoURL:      srv.URL + "/verify",
	}, WithHTTPClient(srv.Client()))
}

func TestTwitterAdapter(t *testing.T) {
	t.Parallel()

	srv, callbacks := newTwitterServer(t)
	a := newTestTwitter(srv)
	assert.Equal(t, identity.ProviderTwitter, a.Name())

	ctx := context.Background()

	u, err := a.AuthURL(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/authorize?oauth_token=rt", u)
	callback := <-callbacks
	assert.Contains(t, callback, "oauth_callback")
	assert.Contains(t, callback, "state-1")

	t.Run("denied", func(t *testing.T) {
		_, err := a.Exchange(ctx, url.Values{"denied": {"rt"}})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unknown request token", func(t *testing.T) {
		_, err := a.Exchange(ctx, url.Values{"oauth_token": {"other"}, "oauth_verifier": {"v"}})
		assert.ErrorIs(t, err, ErrRequestTokenExpired)
	})

	t.Run("missing verifier", func(t *testing.T) {
		_, err := a.Exchange(ctx, url.Values{"oauth_token": {"rt"}})
		assert.ErrorIs(t, err, ErrMissingCode)
	})

	t.Run("exchange", func(t *testing.T) {
		cred, err := a.Exchange(ctx, url.Values{"oauth_token": {"rt"}, "oauth_verifier": {"v"}})
		require.NoError(t, err)
		assert.Equal(t, "tw-1", cred.ProviderID)
		assert.Equal(t, "at", cred.Token)
		assert.Equal(t, "ada_l", cred.Profile.Username)

		// the request token secret is single use
		_, err = a.Exchange(ctx, url.Values{"oauth_token": {"rt"}, "oauth_verifier": {"v"}})
		assert.ErrorIs(t, err, ErrRequestTokenExpired)
	})
}

func TestTwitterAdapter_SharedFlowStore(t *testing.T) {
	t.Parallel()

	srv, callbacks := newTwitterServer(t)
	flow := &mapFlowStore{}
	ctx := WithFlowStore(context.Background(), flow)

	_, err := newTestTwitter(srv).AuthURL(ctx, "state-1")
	require.NoError(t, err)
	<-callbacks
	assert.Contains(t, flow.values, "twitter_request_secret:rt")

	// the callback lands on another instance
	other := newTestTwitter(srv)
	_, err = other.Exchange(context.Background(), url.Values{"oauth_token": {"rt"}, "oauth_verifier": {"v"}})
	assert.ErrorIs(t, err, ErrRequestTokenExpired)

	cred, err := other.Exchange(ctx, url.Values{"oauth_token": {"rt"}, "oauth_verifier": {"v"}})
	require.NoError(t, err)
	assert.Equal(t, "tw-1", cred.ProviderID)
	assert.Empty(t, flow.values)
}
