package cookie

import (
	"fmt"
	"net/http"
	"strings"
)

// Config holds cookie settings loaded from the environment.
type Config struct {
	Secrets  []string `env:"COOKIE_SECRETS,required" envSeparator:","`
	Domain   string   `env:"COOKIE_DOMAIN" envDefault:""`
	Secure   bool     `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite string   `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

// ParseSameSite maps lax, strict and none to their http.SameSite values.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSameSite, s)
	}
}

// NewFromConfig creates a Jar from cfg. opts are applied after the config.
func NewFromConfig(cfg Config, opts ...Option) (*Jar, error) {
	sameSite, err := ParseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}
	secrets := make([]string, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		secrets = append(secrets, strings.TrimSpace(s))
	}

	base := []Option{WithSecure(cfg.Secure), WithSameSite(sameSite)}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	return New(secrets, append(base, opts...)...)
}
