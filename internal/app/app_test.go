package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fedauth/internal/app"
	"github.com/dmitrymomot/fedauth/pkg/config"
	"github.com/dmitrymomot/fedauth/pkg/cookie"
	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/provider"
	"github.com/dmitrymomot/fedauth/pkg/session"
)

const cookieSecret = "test-secret-key-that-is-long-enough-for-aes"

func testConfig(t *testing.T) app.Config {
	t.Helper()
	return app.Config{
		BaseURL:          "https://auth.example.com",
		ProvidersFile:    filepath.Join(t.TempDir(), "providers.yaml"),
		UserStore:        app.UserStoreMemory,
		BcryptCost:       4,
		RefreshOnLogin:   true,
		ReadinessTimeout: time.Second,
		ProviderTimeout:  time.Second,
		Cookie:           cookie.Config{Secrets: []string{cookieSecret}, SameSite: "lax"},
		Session:          session.DefaultConfig(),
	}
}

func newApp(t *testing.T, cfg app.Config, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, logger.Discard(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func serve(t *testing.T, h http.Handler, req *http.Request) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestApp_Probes(t *testing.T) {
	t.Parallel()

	h := newApp(t, testConfig(t)).Handler()

	resp := serve(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "probes do not create sessions")

	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := body(t, resp)
	assert.Contains(t, text, "go_goroutines")
	assert.Contains(t, text, `fedauth_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestApp_LocalSignupIsObserved(t *testing.T) {
	t.Parallel()

	users := identity.NewMemoryStore()
	h := newApp(t, testConfig(t), app.WithUserStore(users)).Handler()

	form := url.Values{"email": {"ada@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := serve(t, h, req)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
	assert.Equal(t, 1, users.Len())

	text := body(t, serve(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil)))
	assert.Contains(t, text, `fedauth_local_auth_total{op="signup",result="ok"} 1`)
}

func TestApp_Providers(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	h := newApp(t, cfg, app.WithProviders(map[string]provider.Config{
		identity.ProviderGoogle:   {ClientID: "google-client", ClientSecret: "s"},
		identity.ProviderFacebook: {},
	})).Handler()

	resp := serve(t, h, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	assert.Equal(t, "google-client", loc.Query().Get("client_id"))
	assert.Equal(t, "https://auth.example.com/auth/google/callback", loc.Query().Get("redirect_uri"))
	assert.NotEmpty(t, resp.Cookies(), "state is kept in a session")

	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/auth/facebook", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "providers without credentials stay disabled")
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown user store", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.UserStore = "cassandra"
		_, err := app.New(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, app.ErrInvalidConfig)
	})

	t.Run("unknown session store", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.Session.Store = "memcached"
		_, err := app.New(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, app.ErrInvalidConfig)
	})

	t.Run("short cookie secret", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.Cookie.Secrets = []string{"short"}
		_, err := app.New(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})

	t.Run("invalid provider table", func(t *testing.T) {
		t.Parallel()
		_, err := app.New(context.Background(), testConfig(t), nil, app.WithProviders(map[string]provider.Config{
			"myspace": {ClientID: "x", ClientSecret: "y"},
		}))
		assert.True(t, errors.Is(err, provider.ErrInvalidConfig) || errors.Is(err, identity.ErrUnknownProvider))
	})
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	t.Parallel()

	err := app.Migrate(context.Background(), testConfig(t), logger.Discard(), "up")
	assert.ErrorIs(t, err, app.ErrMigrateNotNeeded)
}

func TestLoadConfig(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("COOKIE_SECRETS", cookieSecret+",older-secret-that-is-also-long-enough")
	t.Setenv("USER_STORE", app.UserStorePostgres)
	t.Setenv("SESSION_STORE", session.StoreRedis)
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Cookie.Secrets, 2)
	assert.Equal(t, app.UserStorePostgres, cfg.UserStore)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, "fedauth", cfg.Mongo.Database)
	assert.True(t, cfg.RefreshOnLogin)

	config.Reset()
	t.Setenv("USER_STORE", "cassandra")
	_, err = app.LoadConfig()
	assert.ErrorIs(t, err, app.ErrInvalidConfig)
}
