package provider

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// Registry maps provider names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry indexes adapters by name. Every adapter must serve a known
// federated provider, and each provider at most once.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		name := a.Name()
		if !identity.IsFederated(name) {
			return nil, fmt.Errorf("%w: %q", identity.ErrUnknownProvider, name)
		}
		if _, ok := r.adapters[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAdapter, name)
		}
		r.adapters[name] = a
	}
	return r, nil
}

// Get returns the adapter for name. Names that are unknown or not configured
// yield identity.ErrUnknownProvider.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrUnknownProvider, name)
	}
	return a, nil
}

// Names returns the configured provider names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.adapters))
}

type factory func(name string, cfg Config, o *options) Adapter

var factories = map[string]factory{
	identity.ProviderFacebook: func(_ string, cfg Config, o *options) Adapter { return newFacebook(cfg, o) },
	identity.ProviderTwitter:  func(_ string, cfg Config, o *options) Adapter { return newTwitter(cfg, o) },
	identity.ProviderGoogle:   func(_ string, cfg Config, o *options) Adapter { return newGoogle(cfg, o) },

	identity.ProviderOpenIDGoogle:     newOpenID,
	identity.ProviderOpenIDHeroku:     newOpenID,
	identity.ProviderOpenIDOpeni:      newOpenID,
	identity.ProviderOpenIDLocalOpeni: newOpenID,
}

// Build creates adapters for every enabled entry of cfgs. Entries without a
// client id are skipped; enabled entries are completed with defaults and
// validated.
func Build(cfgs map[string]Config, opts ...Option) (*Registry, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	for name := range cfgs {
		if !identity.IsFederated(name) {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, identity.ErrUnknownProvider, name)
		}
	}

	adapters := make([]Adapter, 0, len(cfgs))
	for _, name := range identity.FederatedProviders() {
		cfg, ok := cfgs[name]
		if !ok || !cfg.Enabled() {
			continue
		}
		cfg = cfg.WithDefaults(name, o.baseURL)
		if err := cfg.Validate(name); err != nil {
			return nil, err
		}
		adapters = append(adapters, factories[name](name, cfg, o))
		o.logger.Debug("provider enabled", logger.Provider(name))
	}

	return NewRegistry(adapters...)
}
