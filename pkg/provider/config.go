package provider

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// DefaultBaseURL is used to build callback URLs that are not configured.
const DefaultBaseURL = "http://localhost:8080"

// Config is the per-provider configuration record. The URL triad is required
// by the OpenID adapters only; the other adapters use their well-known
// endpoints unless overridden.
type Config struct {
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	CallbackURL      string   `yaml:"callback_url"`
	AuthorizationURL string   `yaml:"authorization_url"`
	TokenURL         string   `yaml:"token_url"`
	UserInfoURL      string   `yaml:"user_info_url"`
	RequestTokenURL  string   `yaml:"request_token_url"`
	Scopes           []string `yaml:"scopes"`
}

// Enabled reports whether the provider has credentials configured.
func (c Config) Enabled() bool {
	return c.ClientID != ""
}

var openIDEndpoints = map[string]Config{
	identity.ProviderOpenIDGoogle: {
		AuthorizationURL: "https://accounts.google.com/o/oauth2/auth",
		TokenURL:         "https://accounts.google.com/o/oauth2/token",
		UserInfoURL:      "https://www.googleapis.com/plus/v1/people/me",
	},
	identity.ProviderOpenIDHeroku: {
		AuthorizationURL: "https://connect-op.heroku.com/authorizations/new",
		TokenURL:         "https://connect-op.heroku.com/access_tokens",
		UserInfoURL:      "https://connect-op.heroku.com/user_info",
	},
	identity.ProviderOpenIDOpeni: {
		AuthorizationURL: "http://localhost:3000/authorizations/new",
		TokenURL:         "http://localhost:3000/access_tokens",
		UserInfoURL:      "http://localhost:3000/user_info",
	},
	identity.ProviderOpenIDLocalOpeni: {
		AuthorizationURL: "http://localhost:3000/authorizations/new",
		TokenURL:         "http://localhost:3000/access_tokens",
		UserInfoURL:      "http://localhost:3000/user_info",
	},
}

// IsOpenID reports whether name is served by the generic OpenID adapter.
func IsOpenID(name string) bool {
	_, ok := openIDEndpoints[name]
	return ok
}

// WithDefaults fills empty fields of c with the defaults of provider name,
// using baseURL for the callback URL.
func (c Config) WithDefaults(name, baseURL string) Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c.CallbackURL == "" {
		c.CallbackURL = baseURL + "/auth/" + name + "/callback"
	}
	if ep, ok := openIDEndpoints[name]; ok {
		if c.AuthorizationURL == "" {
			c.AuthorizationURL = ep.AuthorizationURL
		}
		if c.TokenURL == "" {
			c.TokenURL = ep.TokenURL
		}
		if c.UserInfoURL == "" {
			c.UserInfoURL = ep.UserInfoURL
		}
	}
	return c
}

// Validate checks the record for provider name.
func (c Config) Validate(name string) error {
	if !identity.IsFederated(name) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, identity.ErrUnknownProvider, name)
	}
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client_secret is required"))
	}
	if c.CallbackURL == "" {
		errs = append(errs, errors.New("callback_url is required"))
	}
	if IsOpenID(name) && (c.AuthorizationURL == "" || c.TokenURL == "" || c.UserInfoURL == "") {
		errs = append(errs, errors.New("authorization_url, token_url and user_info_url are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, errors.Join(errs...))
	}
	return nil
}

// LoadConfigFile reads a YAML file mapping provider names to Config records.
// ${VAR} references are expanded from the environment before parsing, so
// secrets can stay out of the file.
func LoadConfigFile(path string) (map[string]Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig parses the YAML provider table.
func ParseConfig(b []byte) (map[string]Config, error) {
	var cfgs map[string]Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfgs); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if name == identity.ProviderLocal {
			delete(cfgs, name)
			continue
		}
		if !identity.IsFederated(name) {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, identity.ErrUnknownProvider, name)
		}
	}
	return cfgs, nil
}
