package cookie

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var encoding = base64.RawURLEncoding

// Jar reads and writes the cookies of the auth server: plain, signed and
// sealed (encrypted) values plus one-shot flash messages.
type Jar struct {
	keys     keyring
	defaults Options
	now      func() time.Time
}

// New creates a Jar. The first secret signs and encrypts; all secrets are
// accepted when reading, so secrets can be rotated by prepending a new one.
func New(secrets []string, opts ...Option) (*Jar, error) {
	ring, err := newKeyring(secrets)
	if err != nil {
		return nil, err
	}
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Jar{
		keys:     ring,
		defaults: defaults.apply(opts),
		now:      time.Now,
	}, nil
}

// Set writes a plain cookie.
func (j *Jar) Set(w http.ResponseWriter, name, value string, opts ...Option) {
	http.SetCookie(w, j.defaults.apply(opts).cookie(name, value))
}

// Get reads a plain cookie.
func (j *Jar) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Delete expires the cookie on the client.
func (j *Jar) Delete(w http.ResponseWriter, name string) {
	c := j.defaults.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// SetSigned writes value with an HMAC bound to the cookie name. A positive
// MaxAge is also embedded in the signed payload and enforced on read.
func (j *Jar) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) {
	o := j.defaults.apply(opts)
	var exp int64
	if o.MaxAge > 0 {
		exp = j.now().Add(time.Duration(o.MaxAge) * time.Second).Unix()
	}
	payload := []byte(strconv.FormatInt(exp, 10) + "|" + value)
	sig := j.keys.sign(name, payload)
	http.SetCookie(w, o.cookie(name, encoding.EncodeToString(payload)+"."+encoding.EncodeToString(sig)))
}

// GetSigned reads and verifies a cookie written by SetSigned.
func (j *Jar) GetSigned(r *http.Request, name string) (string, error) {
	raw, err := j.Get(r, name)
	if err != nil {
		return "", err
	}
	encPayload, encSig, ok := strings.Cut(raw, ".")
	if !ok {
		return "", ErrInvalidFormat
	}
	payload, err := encoding.DecodeString(encPayload)
	if err != nil {
		return "", ErrInvalidFormat
	}
	sig, err := encoding.DecodeString(encSig)
	if err != nil {
		return "", ErrInvalidFormat
	}
	if !j.keys.verify(name, payload, sig) {
		return "", ErrInvalidSignature
	}

	expRaw, value, ok := bytes.Cut(payload, []byte("|"))
	if !ok {
		return "", ErrInvalidFormat
	}
	exp, err := strconv.ParseInt(string(expRaw), 10, 64)
	if err != nil {
		return "", ErrInvalidFormat
	}
	if exp > 0 && j.now().Unix() >= exp {
		return "", ErrExpired
	}
	return string(value), nil
}

// SetSealed writes value encrypted with AES-GCM.
func (j *Jar) SetSealed(w http.ResponseWriter, name, value string, opts ...Option) error {
	sealed, err := j.keys.seal(name, []byte(value))
	if err != nil {
		return err
	}
	j.Set(w, name, encoding.EncodeToString(sealed), opts...)
	return nil
}

// GetSealed reads and decrypts a cookie written by SetSealed.
func (j *Jar) GetSealed(r *http.Request, name string) (string, error) {
	raw, err := j.Get(r, name)
	if err != nil {
		return "", err
	}
	sealed, err := encoding.DecodeString(raw)
	if err != nil {
		return "", ErrInvalidFormat
	}
	plaintext, err := j.keys.open(name, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
