package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/fedauth/pkg/config"
	"github.com/dmitrymomot/fedauth/pkg/cookie"
	"github.com/dmitrymomot/fedauth/pkg/httpserver"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/session"
	"github.com/dmitrymomot/fedauth/pkg/store/mongostore"
	"github.com/dmitrymomot/fedauth/pkg/store/pgstore"
)

// User store backends selectable with USER_STORE.
const (
	UserStoreMemory   = "memory"
	UserStoreMongo    = "mongo"
	UserStorePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	BaseURL          string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	ProvidersFile    string        `env:"PROVIDERS_FILE" envDefault:"providers.yaml"`
	UserStore        string        `env:"USER_STORE" envDefault:"memory"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`
	RefreshOnLogin   bool          `env:"REFRESH_TOKEN_ON_LOGIN" envDefault:"true"`
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`
	ProviderTimeout  time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"10s"`

	Log      logger.Config
	HTTP     httpserver.Config
	Cookie   cookie.Config
	Session  session.Config
	Redis    session.RedisConfig
	Mongo    mongostore.Config
	Postgres pgstore.Config
}

// LoadConfig reads the configuration from the environment and .env.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the backend selections.
func (c Config) Validate() error {
	if !slices.Contains([]string{UserStoreMemory, UserStoreMongo, UserStorePostgres}, c.UserStore) {
		return fmt.Errorf("%w: unknown USER_STORE %q", ErrInvalidConfig, c.UserStore)
	}
	if !slices.Contains([]string{session.StoreMemory, session.StoreRedis}, c.Session.Store) {
		return fmt.Errorf("%w: unknown SESSION_STORE %q", ErrInvalidConfig, c.Session.Store)
	}
	return nil
}
