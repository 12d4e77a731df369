package authhttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/provider"
)

type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errInvalidState = errors.New("authhttp: oauth state missing or mismatched")

// classify maps an error to its HTTP status and public code. The message
// never includes the cause.
func classify(err error) (int, errorDetail) {
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, errorDetail{"email_taken", MsgEmailTaken}
	case errors.Is(err, identity.ErrNoSuchUser):
		return http.StatusUnauthorized, errorDetail{"no_such_user", MsgNoSuchUser}
	case errors.Is(err, identity.ErrBadPassword):
		return http.StatusUnauthorized, errorDetail{"bad_password", MsgBadPassword}
	case errors.Is(err, identity.ErrInvalidInput):
		return http.StatusBadRequest, errorDetail{"invalid_input", MsgMissingFields}
	case errors.Is(err, identity.ErrUnknownProvider):
		return http.StatusNotFound, errorDetail{"unknown_provider", "Unknown provider."}
	case errors.Is(err, identity.ErrUnauthenticated), errors.Is(err, identity.ErrPrincipalNotFound):
		return http.StatusUnauthorized, errorDetail{"unauthenticated", "Sign in first."}
	case errors.Is(err, identity.ErrLastCredential):
		return http.StatusConflict, errorDetail{"last_credential", "This is the only way left to sign in to the account."}
	case errors.Is(err, errInvalidState):
		return http.StatusBadRequest, errorDetail{"invalid_state", "The sign in request expired. Please try again."}
	case errors.Is(err, provider.ErrAccessDenied):
		return http.StatusForbidden, errorDetail{"access_denied", "Sign in was cancelled."}
	case errors.Is(err, provider.ErrMissingCode),
		errors.Is(err, provider.ErrRequestTokenExpired),
		errors.Is(err, provider.ErrMissingSubject),
		errors.Is(err, provider.ErrSubjectMismatch),
		errors.Is(err, identity.ErrInvalidCredential):
		return http.StatusBadRequest, errorDetail{"invalid_callback", "The provider response was rejected."}
	case errors.Is(err, provider.ErrExchangeFailed), errors.Is(err, provider.ErrProfileFetch):
		return http.StatusBadGateway, errorDetail{"provider_error", "The provider could not be reached."}
	default:
		return http.StatusInternalServerError, errorDetail{"internal_error", "Something went wrong."}
	}
}

// fail logs err and writes it as a JSON error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logger.Error(err),
	)
	writeJSON(w, status, envelope{Error: &detail})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// wantsJSON reports whether the client sent JSON or prefers it over HTML.
func wantsJSON(r *http.Request) bool {
	if isJSON(r.Header.Get("Content-Type")) {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
