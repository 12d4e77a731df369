package session

import (
	"net/http"
	"time"
)

// Transport carries the opaque session token between the browser and the
// Manager. The token is the only thing a client ever holds; principals and
// OAuth state stay in the Store.
type Transport interface {
	// GetToken returns ErrSessionNotFound when the request carries no token.
	GetToken(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter)
}
