package mongostore

import (
	"time"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// userDocument is the stored shape of an identity.User. Provider links are
// embedded under providers.<name> so each provider id can carry its own
// unique index.
type userDocument struct {
	ID        string                  `bson:"_id"`
	Local     *localDocument          `bson:"local,omitempty"`
	Providers map[string]linkDocument `bson:"providers,omitempty"`
	CreatedAt time.Time               `bson:"created_at"`
	UpdatedAt time.Time               `bson:"updated_at"`
}

type localDocument struct {
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
}

type linkDocument struct {
	ID       string `bson:"id"`
	Token    string `bson:"token,omitempty"`
	Name     string `bson:"name,omitempty"`
	Email    string `bson:"email,omitempty"`
	Username string `bson:"username,omitempty"`
}

func toDocument(u *identity.User) userDocument {
	doc := userDocument{
		ID:        u.ID,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
	if u.Local != nil {
		doc.Local = &localDocument{Email: u.Local.Email, PasswordHash: u.Local.PasswordHash}
	}
	if len(u.Providers) > 0 {
		doc.Providers = make(map[string]linkDocument, len(u.Providers))
		for name, l := range u.Providers {
			doc.Providers[name] = linkDocument{
				ID:       l.ProviderID,
				Token:    l.Token,
				Name:     l.DisplayName,
				Email:    l.Email,
				Username: l.Username,
			}
		}
	}
	return doc
}

func (d userDocument) toUser() *identity.User {
	u := &identity.User{
		ID:        d.ID,
		Providers: make(map[string]identity.ProviderLink, len(d.Providers)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Local != nil {
		u.Local = &identity.LocalCredential{Email: d.Local.Email, PasswordHash: d.Local.PasswordHash}
	}
	for name, l := range d.Providers {
		u.Providers[name] = identity.ProviderLink{
			ProviderID:  l.ID,
			Token:       l.Token,
			DisplayName: l.Name,
			Email:       l.Email,
			Username:    l.Username,
		}
	}
	return u
}
