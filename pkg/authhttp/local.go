package authhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

const maxBodySize = 64 << 10

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// bindCredentials reads email and password from a JSON body or a form.
func bindCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var c credentials
	if isJSON(r.Header.Get("Content-Type")) {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, errors.Join(identity.ErrInvalidInput, fmt.Errorf("malformed json body: %w", err))
		}
		return c, nil
	}
	if err := r.ParseForm(); err != nil {
		return c, errors.Join(identity.ErrInvalidInput, fmt.Errorf("malformed form: %w", err))
	}
	c.Email = r.PostForm.Get("email")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

type pageView struct {
	Messages []string `json:"messages"`
}

// formPage returns the queued messages for a form. It stands in for the
// rendered page of a browser client.
func (h *Handler) formPage(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := h.notifier.Messages(w, r, key)
		if err != nil {
			h.logger.WarnContext(r.Context(), "failed to read flash messages", logger.Error(err))
		}
		if msgs == nil {
			msgs = []string{}
		}
		writeJSON(w, http.StatusOK, envelope{Data: pageView{Messages: msgs}})
	}
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	h.localSignup(w, r, "/signup", KeySignup)
}

// connectLocal adds a password to the signed-in account.
func (h *Handler) connectLocal(w http.ResponseWriter, r *http.Request) {
	h.localSignup(w, r, "/connect/local", KeyLogin)
}

func (h *Handler) localSignup(w http.ResponseWriter, r *http.Request, back, key string) {
	ctx := r.Context()
	c, err := bindCredentials(w, r)
	if err == nil {
		var u *identity.User
		u, err = h.local.Signup(ctx, identity.PrincipalFromContext(ctx), c.Email, c.Password)
		if err == nil {
			h.completeLogin(w, r, u, http.StatusCreated)
			return
		}
	}
	h.rejectForm(w, r, err, back, key)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := bindCredentials(w, r)
	if err == nil {
		var u *identity.User
		u, err = h.local.Login(ctx, c.Email, c.Password)
		if err == nil {
			h.completeLogin(w, r, u, http.StatusOK)
			return
		}
	}
	h.rejectForm(w, r, err, "/login", KeyLogin)
}

// rejectForm answers a failed form post. Errors the user can fix are queued
// under key and the browser is sent back to the form.
func (h *Handler) rejectForm(w http.ResponseWriter, r *http.Request, err error, back, key string) {
	status, detail := classify(err)
	if wantsJSON(r) || status >= http.StatusInternalServerError {
		h.fail(w, r, err)
		return
	}
	if nerr := h.notifier.Notify(w, r, key, detail.Message); nerr != nil {
		h.logger.WarnContext(r.Context(), "failed to queue flash message", logger.Error(nerr))
	}
	h.redirect(w, r, back)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), w, r); err != nil {
		h.logger.WarnContext(r.Context(), "failed to delete session", logger.Error(err))
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.redirect(w, r, "/")
}
