package authhttp

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

type localView struct {
	Email string `json:"email"`
}

type linkView struct {
	ProviderID  string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Attached    bool   `json:"attached"`
}

// profileView is the public shape of a user. Tokens and password hashes are
// never exposed.
type profileView struct {
	ID        string              `json:"id"`
	Local     *localView          `json:"local,omitempty"`
	Providers map[string]linkView `json:"providers"`
	CreatedAt time.Time           `json:"created_at"`
}

func newProfileView(u *identity.User) profileView {
	v := profileView{
		ID:        u.ID,
		Providers: make(map[string]linkView, len(u.Providers)),
		CreatedAt: u.CreatedAt,
	}
	if u.Local != nil {
		v.Local = &localView{Email: u.Local.Email}
	}
	for name, l := range u.Providers {
		v.Providers[name] = linkView{
			ProviderID:  l.ProviderID,
			DisplayName: l.DisplayName,
			Email:       l.Email,
			Username:    l.Username,
			Attached:    l.Attached(),
		}
	}
	return v
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, identity.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newProfileView(u)})
}
