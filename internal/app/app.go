package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/fedauth/pkg/authhttp"
	"github.com/dmitrymomot/fedauth/pkg/cookie"
	"github.com/dmitrymomot/fedauth/pkg/httpserver"
	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/metrics"
	"github.com/dmitrymomot/fedauth/pkg/provider"
	"github.com/dmitrymomot/fedauth/pkg/session"
)

// App is the wired service.
type App struct {
	cfg    Config
	logger *slog.Logger

	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	sessions  *session.Manager
	providers *provider.Registry
	auth      *authhttp.Handler

	checks  map[string]httpserver.Check
	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	users     identity.Store
	providers map[string]provider.Config
}

// WithUserStore replaces the configured user store.
func WithUserStore(s identity.Store) Option {
	return func(o *options) { o.users = s }
}

// WithProviders sets the provider table instead of reading ProvidersFile.
func WithProviders(cfgs map[string]provider.Config) Option {
	return func(o *options) { o.providers = cfgs }
}

// New connects the stores and builds the HTTP handler. The caller must
// Close the returned App.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if log == nil {
		log = logger.Discard()
	}

	a := &App{
		cfg:      cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
		checks:   make(map[string]httpserver.Check),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.metrics, err = metrics.New(a.registry); err != nil {
		return nil, err
	}

	users := o.users
	if users == nil {
		if users, err = a.openUserStore(ctx, cfg); err != nil {
			return nil, err
		}
	}
	sessionStore, err := a.openSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jar, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, err
	}

	a.sessions = session.New(identity.NewCodec(users), session.NewCookieTransport(jar, cfg.Session.CookieName),
		session.WithStore(sessionStore),
		session.WithConfig(cfg.Session),
		session.WithLogger(log),
	)
	a.onClose(a.sessions.Close)

	provCfgs := o.providers
	if provCfgs == nil {
		if provCfgs, err = a.loadProviders(ctx, cfg.ProvidersFile); err != nil {
			return nil, err
		}
	}
	a.providers, err = provider.Build(provCfgs,
		provider.WithBaseURL(cfg.BaseURL),
		provider.WithLogger(log),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.ProviderTimeout}),
	)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "providers enabled", slog.Any("providers", a.providers.Names()))

	resolver := identity.NewResolver(users,
		identity.WithLogger(log),
		identity.WithObserver(a.metrics),
		identity.WithRefreshOnLogin(cfg.RefreshOnLogin),
	)
	local := identity.NewLocalStrategy(users,
		identity.WithHasher(identity.NewBcryptHasher(cfg.BcryptCost)),
		identity.WithLocalLogger(log),
		identity.WithLocalObserver(a.metrics),
	)
	a.auth = authhttp.New(a.sessions, resolver, local, a.providers,
		authhttp.WithLogger(log),
		authhttp.WithNotifier(authhttp.NewFlashNotifier(jar)),
	)
	return a, nil
}

// loadProviders reads the provider table. A missing file leaves only local
// accounts enabled.
func (a *App) loadProviders(ctx context.Context, path string) (map[string]provider.Config, error) {
	cfgs, err := provider.LoadConfigFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.WarnContext(ctx, "provider config not found, federated login disabled", slog.String("path", path))
		return map[string]provider.Config{}, nil
	}
	return cfgs, err
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.logger))
	return srv.Run(ctx, a.Handler())
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases the connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for _, fn := range slices.Backward(a.closers) {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("app: close: %w", errors.Join(errs...))
	}
	return nil
}
