package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// openIDAdapter serves every OpenID-Connect-style provider. The providers
// differ only in their endpoints and in the shape of the user info document.
type openIDAdapter struct {
	oauth2Flow
}

// NewOpenID returns the adapter for one of the OpenID provider names.
func NewOpenID(name string, cfg Config, opts ...Option) (Adapter, error) {
	if !IsOpenID(name) {
		return nil, fmt.Errorf("%w: %q is not an openid provider", identity.ErrUnknownProvider, name)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg = cfg.WithDefaults(name, o.baseURL)
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	return newOpenID(name, cfg, o), nil
}

func newOpenID(name string, cfg Config, o *options) Adapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &openIDAdapter{oauth2Flow{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizationURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  o.httpClient,
		logger:      o.logger,
	}}
}

func (a *openIDAdapter) Exchange(ctx context.Context, params url.Values) (identity.Credential, error) {
	tok, err := a.exchange(ctx, params)
	if err != nil {
		return identity.Credential{}, err
	}

	var raw json.RawMessage
	if err := a.fetchProfile(ctx, tok, &raw); err != nil {
		return identity.Credential{}, err
	}

	idToken, _ := tok.Extra("id_token").(string)
	cred, err := mapOpenIDUser(a.name, raw, tok.AccessToken, idToken)
	if err != nil {
		a.logger.WarnContext(ctx, "openid profile rejected",
			logger.Provider(a.name),
			logger.Error(err),
		)
		return identity.Credential{}, err
	}
	return cred, nil
}

// mapOpenIDUser normalizes a user info document. The subject is read from
// "sub", "user_id" or "id"; the email from "email", or from the first entry
// of an "emails" list whose items are strings or {"value": ...} objects.
// When an id token is present its subject must agree with the document.
func mapOpenIDUser(provider string, raw []byte, token, idToken string) (identity.Credential, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return identity.Credential{}, errors.Join(ErrProfileFetch, err)
	}

	subject := firstString(doc, "sub", "user_id", "id")
	if idToken != "" {
		claimed, err := idTokenSubject(idToken)
		if err != nil {
			return identity.Credential{}, err
		}
		switch {
		case subject == "":
			subject = claimed
		case claimed != "" && claimed != subject:
			return identity.Credential{}, ErrSubjectMismatch
		}
	}
	if subject == "" {
		return identity.Credential{}, ErrMissingSubject
	}

	return identity.Credential{
		Provider:   provider,
		ProviderID: subject,
		Token:      token,
		Profile: identity.Profile{
			DisplayName: normalizeName(firstString(doc, "name", "displayName", "display_name")),
			Email:       firstEmail(doc),
			Username:    firstString(doc, "preferred_username", "nickname"),
		},
	}, nil
}

// idTokenSubject reads the sub claim without verifying the signature. The
// token came straight from the token endpoint over TLS; it is only used to
// cross-check the user info subject.
func idTokenSubject(idToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", fmt.Errorf("%w: malformed id token: %w", ErrProfileFetch, err)
	}
	return claims.GetSubject()
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstEmail(doc map[string]any) string {
	if email, ok := doc["email"].(string); ok && email != "" {
		return email
	}
	list, ok := doc["emails"].([]any)
	if !ok {
		return ""
	}
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if value, ok := v["value"].(string); ok && value != "" {
				return value
			}
		}
	}
	return ""
}
