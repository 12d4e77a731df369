package authhttp

import (
	"net/http"

	"github.com/dmitrymomot/fedauth/pkg/cookie"
)

// Message keys.
const (
	KeySignup = "signupMessage"
	KeyLogin  = "loginMessage"
)

// User-facing messages.
const (
	MsgEmailTaken    = "That email is already taken."
	MsgNoSuchUser    = "No user found."
	MsgBadPassword   = "Oops! Wrong password."
	MsgMissingFields = "Email and password are required."
)

// Notifier queues messages shown on the next page view.
type Notifier interface {
	Notify(w http.ResponseWriter, r *http.Request, key, msg string) error
	Messages(w http.ResponseWriter, r *http.Request, key string) ([]string, error)
}

// FlashNotifier keeps messages in an encrypted flash cookie.
type FlashNotifier struct {
	jar *cookie.Jar
}

var _ Notifier = (*FlashNotifier)(nil)

func NewFlashNotifier(jar *cookie.Jar) *FlashNotifier {
	return &FlashNotifier{jar: jar}
}

func (n *FlashNotifier) Notify(w http.ResponseWriter, r *http.Request, key, msg string) error {
	return n.jar.AddFlash(w, r, key, msg)
}

func (n *FlashNotifier) Messages(w http.ResponseWriter, r *http.Request, key string) ([]string, error) {
	return n.jar.Flashes(w, r, key)
}

type discardNotifier struct{}

func (discardNotifier) Notify(http.ResponseWriter, *http.Request, string, string) error {
	return nil
}

func (discardNotifier) Messages(http.ResponseWriter, *http.Request, string) ([]string, error) {
	return nil, nil
}
