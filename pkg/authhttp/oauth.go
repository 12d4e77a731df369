package authhttp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/provider"
	"github.com/dmitrymomot/fedauth/pkg/session"
)

func stateKey(name string) string {
	return "oauth_state:" + name
}

// sessionFlow keeps adapter handshake values in the session so a callback
// served by another instance still finds them. Writes are buffered and saved
// together with the state by begin.
type sessionFlow struct {
	sessions *session.Manager
	r        *http.Request
	pending  map[string]string
}

var _ provider.FlowStore = (*sessionFlow)(nil)

func newSessionFlow(sessions *session.Manager, r *http.Request) *sessionFlow {
	return &sessionFlow{sessions: sessions, r: r, pending: make(map[string]string)}
}

func (f *sessionFlow) Put(_ context.Context, key, value string) error {
	f.pending[flowKey(key)] = value
	return nil
}

func (f *sessionFlow) Take(ctx context.Context, key string) (string, bool, error) {
	return f.sessions.PopValue(ctx, f.r, flowKey(key))
}

func flowKey(key string) string {
	return "oauth_flow:" + key
}

// begin stores a fresh state in the session and redirects to the provider.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	state := rand.Text()
	flow := newSessionFlow(h.sessions, r)
	flow.pending[stateKey(adapter.Name())] = state

	target, err := adapter.AuthURL(provider.WithFlowStore(ctx, flow), state)
	if err != nil {
		h.fail(w, r, errors.Join(provider.ErrExchangeFailed, err))
		return
	}
	if err := h.sessions.SetValues(ctx, w, r, flow.pending); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// callback completes the handshake and resolves the credential against the
// request principal: anonymous callers are logged in, signed-in callers get
// the provider linked to their account.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := adapter.Name()

	want, ok, err := h.sessions.PopValue(ctx, r, stateKey(name))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	got := r.URL.Query().Get("state")
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		h.fail(w, r, errInvalidState)
		return
	}

	cred, err := adapter.Exchange(provider.WithFlowStore(ctx, newSessionFlow(h.sessions, r)), r.URL.Query())
	if err != nil {
		if errors.Is(err, provider.ErrAccessDenied) && !wantsJSON(r) {
			h.logger.InfoContext(ctx, "provider sign in cancelled", logger.Provider(name))
			h.redirect(w, r, h.failureRedirect)
			return
		}
		h.fail(w, r, err)
		return
	}

	res, err := h.resolver.Resolve(ctx, cred, identity.PrincipalFromContext(ctx))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "provider callback resolved",
		logger.Provider(name),
		logger.Outcome(string(res.Outcome)),
		logger.UserID(res.User.ID),
	)

	status := http.StatusOK
	if res.Outcome == identity.OutcomeCreated {
		status = http.StatusCreated
	}
	h.completeLogin(w, r, res.User, status)
}

// unlink detaches a provider, or the local credential, from the signed-in
// account.
func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := identity.PrincipalFromContext(ctx)
	name := chi.URLParam(r, "provider")

	var (
		u   *identity.User
		err error
	)
	if name == identity.ProviderLocal {
		u, err = h.local.Unlink(ctx, p)
	} else {
		u, err = h.resolver.Unlink(ctx, p, name)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, envelope{Data: newProfileView(u)})
		return
	}
	h.redirect(w, r, h.successRedirect)
}
