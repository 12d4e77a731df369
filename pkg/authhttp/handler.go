package authhttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/provider"
	"github.com/dmitrymomot/fedauth/pkg/session"
)

// Default redirect targets.
const (
	DefaultSuccessRedirect = "/profile"
	DefaultFailureRedirect = "/"
)

// Handler serves the signup, login, provider and unlink endpoints.
type Handler struct {
	sessions  *session.Manager
	resolver  *identity.Resolver
	local     *identity.LocalStrategy
	providers *provider.Registry

	notifier        Notifier
	logger          *slog.Logger
	successRedirect string
	failureRedirect string
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithNotifier sets where user-facing messages are queued. Without one the
// messages are dropped.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

// WithRedirects overrides the redirect targets after a successful login and
// after a failed provider callback.
func WithRedirects(success, failure string) Option {
	return func(h *Handler) {
		if success != "" {
			h.successRedirect = success
		}
		if failure != "" {
			h.failureRedirect = failure
		}
	}
}

// New returns a handler for the given services.
func New(sessions *session.Manager, resolver *identity.Resolver, local *identity.LocalStrategy, providers *provider.Registry, opts ...Option) *Handler {
	h := &Handler{
		sessions:        sessions,
		resolver:        resolver,
		local:           local,
		providers:       providers,
		notifier:        discardNotifier{},
		logger:          logger.Discard(),
		successRedirect: DefaultSuccessRedirect,
		failureRedirect: DefaultFailureRedirect,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("authhttp"))
	return h
}

// Routes registers the account endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/signup", h.formPage(KeySignup))
	r.Post("/signup", h.signup)
	r.Get("/login", h.formPage(KeyLogin))
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Get("/auth/{provider}", h.begin)
	r.Get("/auth/{provider}/callback", h.callback)

	r.Group(func(r chi.Router) {
		r.Use(session.RequireAuthWith(http.HandlerFunc(h.unauthenticated)))

		r.Get("/profile", h.profile)

		r.Get("/connect/local", h.formPage(KeyLogin))
		r.Post("/connect/local", h.connectLocal)
		r.Get("/connect/{provider}", h.begin)
		r.Get("/connect/{provider}/callback", h.callback)

		r.Post("/unlink/{provider}", h.unlink)
	})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// completeLogin binds u to the session and answers with its profile or a redirect.
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, u *identity.User, status int) {
	ctx := r.Context()
	if _, err := h.sessions.Login(ctx, w, r, u); err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, status, envelope{Data: newProfileView(u)})
		return
	}
	h.redirect(w, r, h.successRedirect)
}

func (h *Handler) unauthenticated(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, identity.ErrUnauthenticated)
}
