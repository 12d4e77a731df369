package provider

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// Option configures adapters built by Build.
type Option func(*options)

type options struct {
	httpClient       *http.Client
	logger           *slog.Logger
	baseURL          string
	requestSecretTTL time.Duration
}

func defaultOptions() *options {
	return &options{
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		logger:           logger.Discard(),
		baseURL:          DefaultBaseURL,
		requestSecretTTL: 10 * time.Minute,
	}
}

// WithHTTPClient sets the client used for token exchange and profile calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger configures adapter logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBaseURL sets the public URL used to build default callback URLs.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithRequestSecretTTL sets how long an OAuth1 request token secret is kept
// while the user is at the provider.
func WithRequestSecretTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.requestSecretTTL = ttl
		}
	}
}
