package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	cache  = make(map[reflect.Type]any)
	dotenv sync.Once
)

// Load parses environment variables into v using its env tags.
//
// The first call reads a .env file from the working directory when one
// exists; variables already present in the process environment win. Each
// struct type is parsed once and served from cache afterwards, so services
// that load the same section share one value.
//
//	var cfg session.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenv.Do(func() {
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnv reads the given .env files into the process environment. Later
// files override earlier ones; the process environment is not overridden.
// The cache is cleared so subsequent Load calls see the new values.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	// godotenv keeps the first value it sees for a key.
	ordered := slices.Clone(paths)
	slices.Reverse(ordered)
	if err := godotenv.Load(ordered...); err != nil {
		return errors.Join(ErrEnvFile, err)
	}
	Reset()
	return nil
}

// Reset drops every cached section.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}
