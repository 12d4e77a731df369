package session

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/fedauth/pkg/cookie"
)

// CookieTransport keeps the session token in a sealed cookie.
type CookieTransport struct {
	jar  *cookie.Jar
	name string
}

var _ Transport = (*CookieTransport)(nil)

// NewCookieTransport creates a cookie transport writing cookie name.
func NewCookieTransport(jar *cookie.Jar, name string) *CookieTransport {
	return &CookieTransport{jar: jar, name: name}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.jar.GetSealed(r, t.name)
	if err != nil {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	return t.jar.SetSealed(w, t.name, token,
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithHTTPOnly(true),
	)
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) {
	t.jar.Delete(w, t.name)
}
